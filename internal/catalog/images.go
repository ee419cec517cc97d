package catalog

import (
	"strings"

	"github.com/badno/wcflat/pkg/models"
)

const (
	imageSeparator = "|"
	imageFieldSep  = "!"
	altMarker      = "alt :"
)

// ParseImages decodes a WooCommerce image string such as
// "http://a.jpg ! alt : Red ! title : x | http://b.jpg" into ordered descriptors.
// Empty segments are dropped; positions count surviving segments only.
func ParseImages(raw string) []models.ImageDescriptor {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var images []models.ImageDescriptor
	for _, segment := range strings.Split(raw, imageSeparator) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		parts := strings.Split(segment, imageFieldSep)
		img := models.ImageDescriptor{
			URL:      strings.TrimSpace(parts[0]),
			Position: len(images) + 1,
		}
		for _, part := range parts[1:] {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, altMarker) {
				img.Alt = strings.TrimSpace(strings.TrimPrefix(part, altMarker))
				break
			}
		}

		images = append(images, img)
	}

	return images
}

// FirstImageURL returns the URL of the first parsed image, or ""
func FirstImageURL(raw string) string {
	images := ParseImages(raw)
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
