package usecase

import (
	"recordpanel/internal/domain"
	"recordpanel/internal/ports"
)

// negotiateMimeType returns the first preferred type the factory supports, or
// "" to let the recorder pick its default.
func negotiateMimeType(factory ports.RecorderFactory, preferred []string) string {
	if len(preferred) == 0 {
		preferred = domain.DefaultMimeTypes
	}
	for _, mimeType := range preferred {
		if factory.IsTypeSupported(mimeType) {
			return mimeType
		}
	}
	return ""
}
