package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"

	"github.com/charlesng35/tooltable/internal/models"
	apperrors "github.com/charlesng35/tooltable/pkg/errors"
	"github.com/charlesng35/tooltable/pkg/optional"
)

// AuthLinkGroup is the set of active links of one region.
type AuthLinkGroup struct {
	Region string            `json:"region"`
	Items  []models.AuthLink `json:"items"`
}

// AuthLinkInput describes a link to create.
type AuthLinkInput struct {
	Region    string `json:"region"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	SortOrder int    `json:"sort_order"`
	IsActive  *bool  `json:"is_active"`
}

// AuthLinkPatch is a partial update; absent fields are left untouched.
type AuthLinkPatch struct {
	Region    optional.Field[string] `json:"region"`
	Name      optional.Field[string] `json:"name"`
	URL       optional.Field[string] `json:"url"`
	SortOrder optional.Field[int]    `json:"sort_order"`
	IsActive  optional.Field[bool]   `json:"is_active"`
}

// AuthLinkService manages region-grouped authentication links.
type AuthLinkService struct {
	db      *gorm.DB
	changes *ChangeLogService
}

// NewAuthLinkService constructs an AuthLinkService.
func NewAuthLinkService(db *gorm.DB, changes *ChangeLogService) (*AuthLinkService, error) {
	if db == nil {
		return nil, errors.New("auth link service: db is required")
	}
	return &AuthLinkService{db: db, changes: changes}, nil
}

// ListGrouped returns active links grouped by region in region order.
func (s *AuthLinkService) ListGrouped(ctx context.Context) ([]AuthLinkGroup, error) {
	ctx = ensureContext(ctx)

	var links []models.AuthLink
	if err := s.ordered(ctx).Where("is_active = ?", true).Find(&links).Error; err != nil {
		return nil, fmt.Errorf("auth link service: list grouped: %w", err)
	}

	groups := []AuthLinkGroup{}
	index := map[string]int{}
	for _, link := range links {
		pos, ok := index[link.Region]
		if !ok {
			pos = len(groups)
			index[link.Region] = pos
			groups = append(groups, AuthLinkGroup{Region: link.Region})
		}
		groups[pos].Items = append(groups[pos].Items, link)
	}
	return groups, nil
}

// ListAll returns every link, active or not.
func (s *AuthLinkService) ListAll(ctx context.Context) ([]models.AuthLink, error) {
	ctx = ensureContext(ctx)

	links := []models.AuthLink{}
	if err := s.ordered(ctx).Find(&links).Error; err != nil {
		return nil, fmt.Errorf("auth link service: list all: %w", err)
	}
	return links, nil
}

// Regions returns the distinct regions of active links, ascending.
func (s *AuthLinkService) Regions(ctx context.Context) ([]string, error) {
	ctx = ensureContext(ctx)

	regions := []string{}
	err := s.db.WithContext(ctx).Model(&models.AuthLink{}).
		Where("is_active = ?", true).
		Distinct().
		Order("region ASC").
		Pluck("region", &regions).Error
	if err != nil {
		return nil, fmt.Errorf("auth link service: regions: %w", err)
	}
	return regions, nil
}

// Get returns a link by id.
func (s *AuthLinkService) Get(ctx context.Context, id uint) (*models.AuthLink, error) {
	ctx = ensureContext(ctx)

	var link models.AuthLink
	if err := s.db.WithContext(ctx).Take(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("auth link not found")
		}
		return nil, fmt.Errorf("auth link service: get: %w", err)
	}
	return &link, nil
}

// Create inserts a link.
func (s *AuthLinkService) Create(ctx context.Context, input AuthLinkInput) (*models.AuthLink, error) {
	ctx = ensureContext(ctx)

	input.Region = strings.TrimSpace(input.Region)
	input.Name = strings.TrimSpace(input.Name)
	input.URL = strings.TrimSpace(input.URL)
	if err := validation.ValidateStruct(&input,
		validation.Field(&input.Region, regionRules...),
		validation.Field(&input.Name, nameRules...),
		validation.Field(&input.URL, validation.Required),
	); err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}

	link := models.AuthLink{
		Region:    input.Region,
		Name:      input.Name,
		URL:       input.URL,
		SortOrder: input.SortOrder,
		IsActive:  true,
	}
	if input.IsActive != nil {
		link.IsActive = *input.IsActive
	}
	if err := s.db.WithContext(ctx).Create(&link).Error; err != nil {
		return nil, fmt.Errorf("auth link service: create: %w", err)
	}

	recordChange(s.changes, ctx, ChangeEntry{
		Entity:   models.ChangeEntityAuthLink,
		EntityID: strconv.FormatUint(uint64(link.ID), 10),
		Action:   "create",
		Changes:  map[string]any{"region": link.Region, "name": link.Name, "url": link.URL},
	})
	return &link, nil
}

// Update applies the fields present in patch.
func (s *AuthLinkService) Update(ctx context.Context, id uint, patch AuthLinkPatch) (*models.AuthLink, error) {
	ctx = ensureContext(ctx)

	link, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if err := applyStringPatch(updates, "region", patch.Region, link.Region, regionRules...); err != nil {
		return nil, err
	}
	if err := applyStringPatch(updates, "name", patch.Name, link.Name, nameRules...); err != nil {
		return nil, err
	}
	if err := applyStringPatch(updates, "url", patch.URL, link.URL, validation.Required); err != nil {
		return nil, err
	}
	if patch.SortOrder.Set {
		if patch.SortOrder.Null {
			return nil, apperrors.NewBadRequest("sort_order cannot be null")
		}
		if patch.SortOrder.Value != link.SortOrder {
			updates["sort_order"] = patch.SortOrder.Value
		}
	}
	if patch.IsActive.Set {
		if patch.IsActive.Null {
			return nil, apperrors.NewBadRequest("is_active cannot be null")
		}
		if patch.IsActive.Value != link.IsActive {
			updates["is_active"] = patch.IsActive.Value
		}
	}

	if len(updates) == 0 {
		return link, nil
	}
	if err := s.db.WithContext(ctx).Model(&models.AuthLink{ID: id}).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("auth link service: update: %w", err)
	}

	recordChange(s.changes, ctx, ChangeEntry{
		Entity:   models.ChangeEntityAuthLink,
		EntityID: strconv.FormatUint(uint64(id), 10),
		Action:   "update",
		Changes:  updates,
	})
	return s.Get(ctx, id)
}

// Delete removes a link.
func (s *AuthLinkService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Delete(&models.AuthLink{}, id)
	if result.Error != nil {
		return fmt.Errorf("auth link service: delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFound("auth link not found")
	}

	recordChange(s.changes, ctx, ChangeEntry{
		Entity:   models.ChangeEntityAuthLink,
		EntityID: strconv.FormatUint(uint64(id), 10),
		Action:   "delete",
	})
	return nil
}

func (s *AuthLinkService) ordered(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Order("region ASC, sort_order ASC, id ASC")
}

var (
	regionRules = []validation.Rule{validation.Required, validation.RuneLength(1, 100)}
	nameRules   = []validation.Rule{validation.Required, validation.RuneLength(1, 200)}
)

func applyStringPatch(updates map[string]any, column string, field optional.Field[string], current string, rules ...validation.Rule) error {
	if !field.Set {
		return nil
	}
	if field.Null {
		return apperrors.NewBadRequest(column + " cannot be null")
	}
	value := strings.TrimSpace(field.Value)
	if err := validation.Validate(value, rules...); err != nil {
		return apperrors.NewBadRequest(column + ": " + err.Error())
	}
	if value != current {
		updates[column] = value
	}
	return nil
}
