package variant

import (
	"strings"

	"github.com/badno/wcflat/internal/catalog"
	"github.com/badno/wcflat/pkg/models"
)

// State holds the values resolved for the previous combination of a product.
// It is threaded through the combination loop and never shared between products.
type State struct {
	Price          string
	CompareAtPrice string
	Image          string
}

// OwnPrice is the selling price of a record: sale price when set, else regular
func OwnPrice(r *models.ProductRecord) string {
	if sale := strings.TrimSpace(r.SalePrice); sale != "" {
		return sale
	}
	return strings.TrimSpace(r.RegularPrice)
}

// OwnCompareAtPrice is the compare-at price of a record
func OwnCompareAtPrice(r *models.ProductRecord) string {
	return strings.TrimSpace(r.RegularPrice)
}

// Seed returns the initial carried state for a product: the parent's
// regular price as price and its sale price as compare-at price. Products
// without children are priced from the seed alone.
func Seed(parent *models.ProductRecord) State {
	return State{
		Price:          strings.TrimSpace(parent.RegularPrice),
		CompareAtPrice: strings.TrimSpace(parent.SalePrice),
	}
}

// Resolver applies the fallback cascade for one product
type Resolver struct {
	parentImages []models.ImageDescriptor
}

// NewResolver creates a resolver over the parent's parsed images
func NewResolver(parentImages []models.ImageDescriptor) *Resolver {
	return &Resolver{parentImages: parentImages}
}

// Resolve computes price, compare-at price and image for one combination.
// child may be nil when no child matched; prices are then carried but the
// parent images are still searched for the combination values. The returned
// state is both the row's values and the carried state for the next
// combination.
func (r *Resolver) Resolve(carried State, child *models.ProductRecord, values []string) State {
	next := carried

	if child != nil {
		if p := OwnPrice(child); p != "" {
			next.Price = p
		}
		if c := OwnCompareAtPrice(child); c != "" {
			next.CompareAtPrice = c
		}
	}

	if img := r.image(child, values); img != "" {
		next.Image = img
	}

	return next
}

// image returns the child's own first image, else the first parent image
// whose URL mentions one of the combination values. "" means carry over.
func (r *Resolver) image(child *models.ProductRecord, values []string) string {
	if child != nil {
		if url := catalog.FirstImageURL(child.Images); url != "" {
			return url
		}
	}

	for _, img := range r.parentImages {
		url := strings.ToLower(img.URL)
		for _, v := range values {
			v = strings.ToLower(strings.TrimSpace(v))
			if v != "" && strings.Contains(url, v) {
				return img.URL
			}
		}
	}

	return ""
}
