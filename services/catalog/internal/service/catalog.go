package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/pkg/events"
	"github.com/tradezone/marketplace/pkg/logging"
	"github.com/tradezone/marketplace/pkg/moderation"
	"github.com/tradezone/marketplace/services/catalog/internal/models"
	"github.com/tradezone/marketplace/services/catalog/internal/repo"
	"github.com/tradezone/marketplace/services/catalog/internal/transport"
)

type CatalogService struct {
	Repo   repo.Repo
	Events events.Publisher
	Now    func() time.Time
}

func (s *CatalogService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *CatalogService) ListActive(ctx context.Context) ([]models.Listing, error) {
	return s.Repo.ListActive(ctx)
}

func (s *CatalogService) ListAll(ctx context.Context, actor moderation.Principal) ([]models.Listing, error) {
	if err := moderation.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.Repo.ListAll(ctx)
}

func (s *CatalogService) Get(ctx context.Context, id string) (*models.Listing, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id is required", apperr.ErrValidation)
	}
	return s.Repo.Get(ctx, id)
}

// ListMine includes the caller's banned listings so sellers can see them.
func (s *CatalogService) ListMine(ctx context.Context, actor moderation.Principal) ([]models.Listing, error) {
	if actor.ID == "" {
		return nil, fmt.Errorf("%w: login required", apperr.ErrUnauthorized)
	}
	return s.Repo.ListByOwner(ctx, actor.ID, false)
}

func (s *CatalogService) ListSeller(ctx context.Context, sellerID string) ([]models.Listing, error) {
	return s.Repo.ListByOwner(ctx, sellerID, true)
}

func (s *CatalogService) Create(ctx context.Context, actor moderation.Principal, req transport.CreateListingRequest) (*models.Listing, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create")

	if actor.ID == "" {
		return nil, fmt.Errorf("%w: login required", apperr.ErrUnauthorized)
	}

	inStock := true
	if req.InStock != nil {
		inStock = *req.InStock
	}
	listing := &models.Listing{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Price:         req.Price,
		Image:         req.Image,
		Category:      strings.TrimSpace(req.Category),
		OwnerID:       actor.ID,
		OwnerUsername: actor.Username,
		InStock:       inStock,
		Status:        moderation.StatusActive,
		CreatedAt:     s.now(),
	}
	if err := validate(listing); err != nil {
		l.Warn("create_listing_error", "status", 400, "error", err)
		return nil, err
	}

	if err := s.Repo.Create(ctx, listing); err != nil {
		l.Error("create_listing_error", "status", 500, "error", err)
		return nil, err
	}

	s.publish(ctx, "listing.created", listing)
	return listing, nil
}

// Update applies req to a copy, validates the whole result and only then
// writes, so a rejected patch changes nothing.
func (s *CatalogService) Update(ctx context.Context, actor moderation.Principal, id string, req transport.PatchListingRequest) (*models.Listing, error) {
	current, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := moderation.RequireOwnerOrAdmin(actor, current.OwnerID); err != nil {
		return nil, err
	}

	next := *current
	if req.Name != nil {
		next.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		next.Description = *req.Description
	}
	if req.Price != nil {
		next.Price = *req.Price
	}
	if req.Image != nil {
		next.Image = *req.Image
	}
	if req.Category != nil {
		next.Category = strings.TrimSpace(*req.Category)
	}
	if req.InStock != nil {
		next.InStock = *req.InStock
	}
	if err := validate(&next); err != nil {
		return nil, err
	}

	if err := s.Repo.Update(ctx, &next); err != nil {
		return nil, err
	}
	s.publish(ctx, "listing.updated", &next)
	return &next, nil
}

func (s *CatalogService) Delete(ctx context.Context, actor moderation.Principal, id string) error {
	current, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := moderation.RequireOwnerOrAdmin(actor, current.OwnerID); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, "listing.deleted", current)
	return nil
}

func (s *CatalogService) SetStatus(ctx context.Context, actor moderation.Principal, id string, status moderation.Status) (*models.Listing, error) {
	if err := moderation.RequireAdmin(actor); err != nil {
		return nil, err
	}

	var bannedBy *string
	typ := "listing.unbanned"
	if status == moderation.StatusBanned {
		by := actor.Username
		bannedBy = &by
		typ = "listing.banned"
	}

	listing, err := s.Repo.SetStatus(ctx, id, status, bannedBy)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("listing_status_changed", "listing_id", id, "status", status, "admin", actor.Username)
	s.publish(ctx, typ, listing)
	return listing, nil
}

func validate(l *models.Listing) error {
	if l.Name == "" {
		return fmt.Errorf("%w: name is required", apperr.ErrValidation)
	}
	if math.IsNaN(l.Price) || math.IsInf(l.Price, 0) || l.Price < 0 {
		return fmt.Errorf("%w: price must be a number >= 0", apperr.ErrValidation)
	}
	if l.Category == "" {
		l.Category = models.DefaultCategory
	}
	return nil
}

func (s *CatalogService) publish(ctx context.Context, typ string, l *models.Listing) {
	if s.Events == nil {
		return
	}
	err := s.Events.Publish(ctx, events.TopicListings, l.ID, events.Event{
		Type: typ,
		Payload: map[string]any{
			"id":        l.ID,
			"name":      l.Name,
			"owner_id":  l.OwnerID,
			"status":    l.Status,
			"banned_by": l.BannedBy,
		},
	})
	if err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", typ, "error", err)
	}
}
