package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"servicematch-server/config"
	"servicematch-server/database"
	"servicematch-server/models"
	"servicematch-server/services"
)

// RegisterSwipeRoutes registers swipe recording and discovery feed routes.
// Must be mounted behind AuthMiddleware.
func RegisterSwipeRoutes(router *gin.RouterGroup, swipes *services.SwipeService) {
	// Record a swipe. Repeating a swipe on the same target is a no-op that
	// returns the original row.
	router.POST("/swipes", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		var req struct {
			TargetID  uint   `json:"target_id" binding:"required"`
			SwipeType string `json:"swipe_type" binding:"required,oneof=customer_on_listing user_on_user"`
			Direction string `json:"direction" binding:"required,oneof=left right"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid request data",
				"error":   err.Error(),
			})
			return
		}

		result, err := swipes.RecordSwipe(userID, req.TargetID,
			models.SwipeType(req.SwipeType), models.SwipeDirection(req.Direction))
		if err != nil {
			switch {
			case errors.Is(err, services.ErrInvalidTarget), errors.Is(err, services.ErrTargetNotFound):
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"success": false,
					"message": "Swipe target is invalid or unavailable",
				})
			case errors.Is(err, services.ErrSelfMatchNotAllowed):
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"success": false,
					"message": "You cannot swipe on yourself or your own listing",
				})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Failed to record swipe",
				})
			}
			return
		}

		response := gin.H{
			"success": true,
			"swipe":   result.Swipe,
			"created": result.Created,
			"matched": result.Match != nil,
		}
		if result.Match != nil {
			response["match"] = result.Match
		}

		c.JSON(http.StatusOK, response)
	})

	// Swipe history for the authenticated user
	router.GET("/swipes", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		query := database.DB.Where("actor_id = ?", userID)
		if direction := c.Query("direction"); direction != "" {
			query = query.Where("direction = ?", direction)
		}

		var swipes []models.Swipe
		if err := query.Order("created_at DESC").Limit(200).Find(&swipes).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to fetch swipes",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"swipes":  swipes,
		})
	})

	// Discovery feed: active listings the user has not swiped yet
	router.GET("/feed", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		limit := config.AppConfig.Matching.FeedLimit
		if limitStr := c.Query("limit"); limitStr != "" {
			if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
				limit = l
			}
		}

		listings, err := swipes.Feed(userID, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to build feed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"listings": listings,
		})
	})
}
