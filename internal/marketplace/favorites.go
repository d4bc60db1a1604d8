package marketplace

import (
	"context"
	"errors"

	"github.com/swapspot/swapspot/internal/db"
	apperrors "github.com/swapspot/swapspot/internal/errors"
)

type favoriteStore interface {
	AddFavorite(ctx context.Context, userID, listingID string) error
	RemoveFavorite(ctx context.Context, userID, listingID string) error
	ListFavorites(ctx context.Context, userID string) ([]*db.Favorite, error)
}

type ratingStore interface {
	InsertRating(ctx context.Context, rating *db.Rating) error
	ListRatingsForUser(ctx context.Context, userID string) ([]*db.Rating, error)
}

type Favorites struct {
	store favoriteStore
}

func NewFavorites(store favoriteStore) *Favorites {
	return &Favorites{store: store}
}

// Add is idempotent; favoriting twice is not an error.
func (f *Favorites) Add(ctx context.Context, userID, listingID string) error {
	err := f.store.AddFavorite(ctx, userID, listingID)
	if err != nil && !errors.Is(err, apperrors.ErrDuplicate) {
		return apperrors.WrapStore("add favorite", err)
	}
	return nil
}

func (f *Favorites) Remove(ctx context.Context, userID, listingID string) error {
	if err := f.store.RemoveFavorite(ctx, userID, listingID); err != nil {
		return apperrors.WrapStore("remove favorite", err)
	}
	return nil
}

func (f *Favorites) List(ctx context.Context, userID string) ([]*db.Favorite, error) {
	favorites, err := f.store.ListFavorites(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapStore("list favorites", err)
	}
	return favorites, nil
}

type Ratings struct {
	store ratingStore
}

func NewRatings(store ratingStore) *Ratings {
	return &Ratings{store: store}
}

func (r *Ratings) ListForUser(ctx context.Context, userID string) ([]*db.Rating, error) {
	ratings, err := r.store.ListRatingsForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapStore("list ratings", err)
	}
	return ratings, nil
}

// Average returns the mean rating and the sample size.
func (r *Ratings) Average(ctx context.Context, userID string) (float64, int, error) {
	ratings, err := r.ListForUser(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	if len(ratings) == 0 {
		return 0, 0, nil
	}
	total := 0
	for _, rating := range ratings {
		total += rating.Rating
	}
	return float64(total) / float64(len(ratings)), len(ratings), nil
}
