package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/plateping/api/internal/domain"
	"github.com/plateping/api/internal/pkg/id"
)

// resolve converts a verified provider identity into the canonical User:
// find by the identity's key, create lazily on first login, refuse blocked
// accounts, and merge profile fields. One-time fields (Apple email/name) are
// written only when currently unset; mutable LINE fields refresh on every
// login.
func (s *service) resolve(ctx context.Context, identity domain.ProviderIdentity) (*domain.User, error) {
	switch ident := identity.(type) {
	case domain.PhoneIdentity:
		user, err := s.users.GetByPhone(ctx, ident.Phone)
		if errors.Is(err, domain.ErrNotFound) {
			return s.create(ctx, func(u *domain.User) {
				u.Phone = &ident.Phone
			})
		}
		if err != nil {
			return nil, err
		}
		return user, checkBlocked(user)

	case domain.PlateIdentity:
		// Plates are never an origin key: plate login presupposes an account
		// that registered the plate through the product side.
		user, err := s.users.GetByLicensePlate(ctx, ident.LicensePlate)
		if err != nil {
			return nil, err
		}
		return user, checkBlocked(user)

	case domain.LineIdentity:
		user, err := s.users.GetByLineUserID(ctx, ident.LineUserID)
		if errors.Is(err, domain.ErrNotFound) {
			return s.create(ctx, func(u *domain.User) {
				u.LineUserID = &ident.LineUserID
				u.Nickname = ident.DisplayName
				u.LineDisplayName = ident.DisplayName
				u.LinePictureURL = ident.PictureURL
				u.IsLineFriend = ident.IsFriend
			})
		}
		if err != nil {
			return nil, err
		}
		if err := checkBlocked(user); err != nil {
			return nil, err
		}
		updates := map[string]interface{}{
			fieldLineDisplayName: ident.DisplayName,
			fieldLinePictureURL:  ident.PictureURL,
			fieldIsLineFriend:    ident.IsFriend,
		}
		if err := s.users.Update(ctx, user.UserID, updates); err != nil {
			return nil, err
		}
		user.LineDisplayName = ident.DisplayName
		user.LinePictureURL = ident.PictureURL
		user.IsLineFriend = ident.IsFriend
		return user, nil

	case domain.AppleIdentity:
		user, err := s.users.GetByAppleUserID(ctx, ident.Subject)
		if errors.Is(err, domain.ErrNotFound) {
			return s.create(ctx, func(u *domain.User) {
				u.AppleUserID = &ident.Subject
				u.Nickname = ident.FullName
				u.AppleEmail = ident.Email
				u.AppleFullName = ident.FullName
			})
		}
		if err != nil {
			return nil, err
		}
		if err := checkBlocked(user); err != nil {
			return nil, err
		}
		// Apple only hands out email and name on first authorization, and the
		// user may have changed them locally since: never overwrite.
		updates := map[string]interface{}{}
		if user.AppleEmail == "" && ident.Email != "" {
			updates[fieldAppleEmail] = ident.Email
			user.AppleEmail = ident.Email
		}
		if user.AppleFullName == "" && ident.FullName != "" {
			updates[fieldAppleFullName] = ident.FullName
			user.AppleFullName = ident.FullName
		}
		if len(updates) > 0 {
			if err := s.users.Update(ctx, user.UserID, updates); err != nil {
				return nil, err
			}
		}
		return user, nil

	default:
		return nil, fmt.Errorf("unsupported identity %T: %w", identity, domain.ErrBadRequest)
	}
}

// create builds a fresh driver account with the origin key applied by set.
// LastFreePointsReset is stamped at creation so the wallet domain never
// double-grants the signup bonus.
func (s *service) create(ctx context.Context, set func(*domain.User)) (*domain.User, error) {
	now := time.Now().UTC()
	user := &domain.User{
		UserID:              id.New(),
		UserType:            domain.UserTypeDriver,
		LastFreePointsReset: now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	set(user)
	if err := s.users.Put(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func checkBlocked(user *domain.User) error {
	if user.IsBlockedByAdmin {
		return fmt.Errorf("account blocked by administrator: %w", domain.ErrBlocked)
	}
	return nil
}
