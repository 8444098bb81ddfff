package server

import (
	"io"

	"forum/internal/models"
	"forum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// readUpload loads the multipart field into memory. The body limit already
// bounds its size.
func readUpload(c *fiber.Ctx, field string) (service.UploadInput, error) {
	file, err := c.FormFile(field)
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded in field "+field))
		return service.UploadInput{}, errResponseWritten
	}

	src, err := file.Open()
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
		return service.UploadInput{}, errResponseWritten
	}
	defer func() { _ = src.Close() }()

	data, err := io.ReadAll(src)
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
		return service.UploadInput{}, errResponseWritten
	}

	return service.UploadInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Data:        data,
	}, nil
}

// UploadProfilePicture handles POST /api/upload/profile-picture
// @Summary Upload a profile picture
// @Description Multipart field profilePicture, an image of at most 5MB. Replaces the current picture.
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param profilePicture formData file true "Image"
// @Success 200 {object} object{message=string,imageUrl=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Router /upload/profile-picture [post]
func (s *Server) UploadProfilePicture(c *fiber.Ctx) error {
	in, err := readUpload(c, "profilePicture")
	if err != nil {
		return nil
	}

	user, ref, err := s.uploadService.UploadProfilePicture(c.UserContext(), currentUserID(c), in)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "Profile picture uploaded successfully",
		"imageUrl": ref,
		"user":     user,
	})
}

// UploadPostImage handles POST /api/upload/post-image
// @Summary Upload a post image
// @Description Multipart field postImage, an image of at most 10MB. Pass the returned URL as image_url when creating the post.
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param postImage formData file true "Image"
// @Success 200 {object} object{message=string,imageUrl=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /upload/post-image [post]
func (s *Server) UploadPostImage(c *fiber.Ctx) error {
	in, err := readUpload(c, "postImage")
	if err != nil {
		return nil
	}

	ref, err := s.uploadService.UploadPostImage(c.UserContext(), currentUserID(c), in)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "Image uploaded successfully",
		"imageUrl": ref,
	})
}
