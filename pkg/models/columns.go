package models

import "fmt"

// Shopify product CSV headers
const (
	ColHandle                = "Handle"
	ColCommand               = "Command"
	ColTitle                 = "Title"
	ColBody                  = "Body (HTML)"
	ColPublished             = "Published"
	ColTags                  = "Tags"
	ColVariantPrice          = "Variant Price"
	ColVariantCompareAtPrice = "Variant Compare At Price"
	ColVariantImage          = "Variant Image"
	ColImageSrc              = "Image Src"
	ColImageAlt              = "Image Alt Text"
	ColImagePosition         = "Image Position"
)

// MetafieldMarker identifies metafield columns in a header
const MetafieldMarker = "(product.metafields."

// OptionNameColumn returns "Option<k> Name" for a 1-based k
func OptionNameColumn(k int) string {
	return fmt.Sprintf("Option%d Name", k)
}

// OptionValueColumn returns "Option<k> Value" for a 1-based k
func OptionValueColumn(k int) string {
	return fmt.Sprintf("Option%d Value", k)
}
