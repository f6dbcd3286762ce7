package routes

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"servicematch-server/database"
	"servicematch-server/models"
)

// RegisterRatingRoutes registers rating routes. Must be mounted behind
// AuthMiddleware.
func RegisterRatingRoutes(router *gin.RouterGroup) {
	// Leave a rating for a completed booking. One rating per booking.
	router.POST("/ratings", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		var req models.RatingCreate
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid request data",
				"error":   err.Error(),
			})
			return
		}

		var booking models.Booking
		if err := database.DB.First(&booking, req.BookingID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Booking not found",
			})
			return
		}

		if booking.CustomerID != userID {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Only the customer of the booking can rate it",
			})
			return
		}

		if booking.Status != models.BookingStatusCompleted {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"message": "Only completed bookings can be rated",
			})
			return
		}

		rating := models.Rating{
			BookingID:   req.BookingID,
			CustomerID:  userID,
			ProviderID:  booking.ProviderID,
			Stars:       req.Stars,
			Comment:     req.Comment,
			IsAnonymous: req.IsAnonymous,
		}

		if err := database.DB.Create(&rating).Error; err != nil {
			if database.IsUniqueViolation(err) {
				c.JSON(http.StatusConflict, gin.H{
					"success": false,
					"message": "This booking has already been rated",
				})
				return
			}
			log.Printf("❌ Rating creation failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to create rating",
			})
			return
		}

		log.Printf("⭐ Booking %d rated %d stars by user %d", req.BookingID, req.Stars, userID)

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"rating":  rating,
		})
	})

	// Ratings received by a provider, newest first
	router.GET("/providers/:id/ratings", func(c *gin.Context) {
		providerID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid provider ID",
			})
			return
		}

		var ratings []models.Rating
		if err := database.DB.
			Preload("Customer").
			Where("provider_id = ?", providerID).
			Order("created_at DESC").
			Limit(100).
			Find(&ratings).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to fetch ratings",
			})
			return
		}

		// Anonymous ratings hide the reviewer
		for i := range ratings {
			if ratings[i].IsAnonymous {
				ratings[i].Customer = models.User{}
				ratings[i].CustomerID = 0
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"ratings": ratings,
			"summary": providerRatingSummary(uint(providerID)),
		})
	})

	// Rating left on a specific booking, if any
	router.GET("/bookings/:id/rating", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		bookingID, ok := bookingIDParam(c)
		if !ok {
			return
		}

		var booking models.Booking
		if err := database.DB.First(&booking, bookingID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Booking not found",
			})
			return
		}
		if booking.CustomerID != userID && booking.ProviderID != userID {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "You are not a party of this booking",
			})
			return
		}

		var rating models.Rating
		if err := database.DB.Where("booking_id = ?", bookingID).First(&rating).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusOK, gin.H{
					"success": true,
					"rating":  nil,
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to fetch rating",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"rating":  rating,
		})
	})
}

func providerRatingSummary(providerID uint) models.RatingSummary {
	summary := models.RatingSummary{ProviderID: providerID}

	type row struct {
		Avg   float64
		Count int
	}
	var r row
	database.DB.Model(&models.Rating{}).
		Select("COALESCE(AVG(stars), 0) as avg, COUNT(*) as count").
		Where("provider_id = ?", providerID).
		Scan(&r)

	summary.AverageStars = r.Avg
	summary.TotalRatings = r.Count
	return summary
}
