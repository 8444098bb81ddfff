package service

import (
	"context"
	"strings"

	"forum/internal/auth"
	"forum/internal/models"
	"forum/internal/repository"
	"forum/internal/storage"
	"forum/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepository
}

// UpdateProfileInput is a patch: only fields with Set are applied.
// ProfilePictureURL distinguishes an explicit null (clear) from absence.
type UpdateProfileInput struct {
	Username          models.Optional[string] `json:"username"`
	Email             models.Optional[string] `json:"email"`
	ProfilePictureURL models.Optional[string] `json:"profile_picture_url"`
	OldPassword       models.Optional[string] `json:"old_password"`
	NewPassword       models.Optional[string] `json:"new_password"`
}

// ProfileUpdate is the outcome of UpdateProfile.
type ProfileUpdate struct {
	User            *models.User
	UsernameChanged bool
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*ProfileUpdate, error) {
	if !in.Username.Set && !in.Email.Set && !in.ProfilePictureURL.Set && !in.NewPassword.Present() {
		return nil, models.NewValidationError("No fields to update")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	var username, email string

	if in.Username.Set {
		if in.Username.Null {
			return nil, models.NewValidationError("username cannot be null")
		}
		username = strings.TrimSpace(in.Username.Value)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		if username != user.Username {
			fields["username"] = username
		}
	}

	if in.Email.Set {
		if in.Email.Null {
			return nil, models.NewValidationError("email cannot be null")
		}
		email = validation.NormalizeEmail(in.Email.Value)
		if err := validation.ValidateEmail(email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		if email != user.Email {
			fields["email"] = email
		}
	}

	if in.ProfilePictureURL.Set {
		picture := strings.TrimSpace(in.ProfilePictureURL.Value)
		if in.ProfilePictureURL.Null || picture == "" {
			fields["profile_picture_url"] = nil
		} else {
			if _, _, upload := storage.ParseRef(picture); upload &&
				!storage.OwnedBy(picture, storage.FolderProfilePictures, userID) &&
				!storage.OwnedBy(picture, storage.FolderPostImages, userID) {
				return nil, models.NewForbiddenError("profile_picture_url must reference your own upload")
			}
			fields["profile_picture_url"] = picture
		}
	}

	if in.NewPassword.Present() {
		if !in.OldPassword.Present() || in.OldPassword.Value == "" {
			return nil, models.NewValidationError("old_password is required to change the password")
		}
		if err := validation.ValidatePassword(in.NewPassword.Value); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		ok, err := auth.CheckPassword(user.Password, in.OldPassword.Value)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if !ok {
			return nil, models.NewUnauthorizedError("Old password is incorrect")
		}
		hash, err := auth.HashPassword(in.NewPassword.Value)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		fields["password"] = hash
	}

	_, checkUsername := fields["username"]
	_, checkEmail := fields["email"]
	if checkUsername || checkEmail {
		if !checkUsername {
			username = ""
		}
		if !checkEmail {
			email = ""
		}
		usernameTaken, emailTaken, err := s.userRepo.FindTaken(ctx, username, email, userID)
		if err != nil {
			return nil, err
		}
		if usernameTaken {
			return nil, models.NewConflictError("Username already taken")
		}
		if emailTaken {
			return nil, models.NewConflictError("Email already taken")
		}
	}

	if len(fields) > 0 {
		// Conflict here means another request claimed the name after FindTaken
		if err := s.userRepo.Update(ctx, userID, fields); err != nil {
			return nil, err
		}
	}

	updated, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ProfileUpdate{User: updated, UsernameChanged: checkUsername}, nil
}

// SetProfilePicture points the user's picture at ref and returns the updated user.
func (s *UserService) SetProfilePicture(ctx context.Context, userID uint, ref string) (*models.User, error) {
	if err := s.userRepo.Update(ctx, userID, map[string]any{"profile_picture_url": ref}); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}
