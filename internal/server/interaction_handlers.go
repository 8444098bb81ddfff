package server

import (
	"forum/internal/models"

	"github.com/gofiber/fiber/v2"
)

// LikePost handles POST /api/posts/:id/like
// @Summary Toggle a like
// @Description Likes the post, or removes the like when one exists. 201 when now liked, 200 when unliked.
// @Tags interactions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 201 {object} object{message=string,liked=bool,likes_count=int}
// @Success 200 {object} object{message=string,liked=bool,likes_count=int}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.togglePost(c, models.RelationLike)
}

// FavoritePost handles POST /api/posts/:id/favorite
// @Summary Toggle a favorite
// @Description Favorites the post, or removes the favorite when one exists. 201 when now favorited, 200 otherwise.
// @Tags interactions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 201 {object} object{message=string,favorited=bool,favorites_count=int}
// @Success 200 {object} object{message=string,favorited=bool,favorites_count=int}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/favorite [post]
func (s *Server) FavoritePost(c *fiber.Ctx) error {
	return s.togglePost(c, models.RelationFavorite)
}

func (s *Server) togglePost(c *fiber.Ctx, rel models.Relation) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	res, err := s.interactionService.Toggle(c.UserContext(), rel, postID, currentUserID(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}

	flag, countKey := "liked", "likes_count"
	added, removed := "Post liked", "Post unliked"
	if rel == models.RelationFavorite {
		flag, countKey = "favorited", "favorites_count"
		added, removed = "Post added to favorites", "Post removed from favorites"
	}

	status, message := fiber.StatusOK, removed
	if res.Active {
		status, message = fiber.StatusCreated, added
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		flag:      res.Active,
		countKey:  res.Count,
	})
}

// GetUserLikes handles GET /api/users/:userId/likes
// @Summary Posts a user liked
// @Description Only the user themself may read it.
// @Tags interactions
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {array} object{post_id=int}
// @Failure 403 {object} models.ErrorResponse
// @Router /users/{userId}/likes [get]
func (s *Server) GetUserLikes(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	ids, err := s.interactionService.LikedPostIDs(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	out := make([]fiber.Map, 0, len(ids))
	for _, id := range ids {
		out = append(out, fiber.Map{"post_id": id})
	}
	return c.JSON(out)
}
