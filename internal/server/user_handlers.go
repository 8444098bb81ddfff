package server

import (
	"forum/internal/models"
	"forum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me
// @Summary Update the current user
// @Description Patch semantics: absent fields are left alone, a null profile_picture_url clears the picture. A new token is returned when the username changes.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{username=string,email=string,profile_picture_url=string,old_password=string,new_password=string} true "Fields to change"
// @Success 200 {object} object{message=string,user=models.User,token=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req service.UpdateProfileInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.userService.UpdateProfile(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	body := fiber.Map{
		"message": "Profile updated successfully",
		"user":    res.User,
	}
	if res.UsernameChanged {
		token, err := s.tokens.Issue(res.User.ID, res.User.Username)
		if err != nil {
			return s.respondServiceError(c, models.NewInternalError(err))
		}
		body["token"] = token
	}
	return c.JSON(body)
}

// GetMyPosts handles GET /api/users/me/posts
// @Summary Posts written by the current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Post
// @Router /users/me/posts [get]
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListByUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetMyFavorites handles GET /api/users/me/favorites
// @Summary Posts the current user favorited
// @Description Most recently favorited first.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Post
// @Router /users/me/favorites [get]
func (s *Server) GetMyFavorites(c *fiber.Ctx) error {
	posts, err := s.postService.ListFavorites(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(posts)
}
