package gantry

import (
	"context"
	"fmt"

	"github.com/tfkr-ae/gantry/domain"
)

// Images looks up launchpad, rocket and crew pictures through the live
// catalog. There is no offline copy of the pictures.
func (app *App) Images(ctx context.Context, page, limit int) ([]domain.ImageBox, error) {
	if app.Config.Offline {
		return nil, fmt.Errorf("offline mode: %w", ErrNoImageLocator)
	}
	locator, ok := app.Catalog.(domain.ImageLocator)
	if !ok {
		return nil, ErrNoImageLocator
	}
	boxes, err := locator.FetchImages(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("locating images : %w", err)
	}
	return boxes, nil
}
