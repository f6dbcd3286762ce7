package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"servicematch-server/services"
)

// RegisterBookingRoutes registers booking lifecycle routes. Must be mounted
// behind AuthMiddleware.
func RegisterBookingRoutes(router *gin.RouterGroup, bookings *services.BookingService) {
	group := router.Group("/bookings")

	// Create a booking from a fully negotiated match
	group.POST("", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		var req struct {
			MatchID uint `json:"match_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid request data",
				"error":   err.Error(),
			})
			return
		}

		booking, err := bookings.CreateFromMatch(req.MatchID, userID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"booking": booking,
		})
	})

	// List the caller's bookings, optionally filtered by status
	group.GET("", func(c *gin.Context) {
		userID := c.GetUint("user_id")

		list, err := bookings.ListForUser(userID, c.Query("status"))
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"bookings": list,
		})
	})

	group.GET("/:id", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		bookingID, ok := bookingIDParam(c)
		if !ok {
			return
		}

		booking, err := bookings.FindForUser(bookingID, userID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"booking": booking,
		})
	})

	group.POST("/:id/confirm", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		bookingID, ok := bookingIDParam(c)
		if !ok {
			return
		}

		booking, err := bookings.Confirm(bookingID, userID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"booking": booking,
		})
	})

	group.POST("/:id/start", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		bookingID, ok := bookingIDParam(c)
		if !ok {
			return
		}

		booking, err := bookings.Start(bookingID, userID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"booking": booking,
		})
	})

	group.POST("/:id/complete", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		bookingID, ok := bookingIDParam(c)
		if !ok {
			return
		}

		booking, err := bookings.Complete(bookingID, userID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"booking": booking,
			"message": "Booking completed, you can now rate it",
		})
	})

	// Cancel from any non-terminal state. The response carries the fee
	// computed from the policy snapshot.
	group.POST("/:id/cancel", func(c *gin.Context) {
		userID := c.GetUint("user_id")
		bookingID, ok := bookingIDParam(c)
		if !ok {
			return
		}

		booking, err := bookings.Cancel(bookingID, userID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":          true,
			"booking":          booking,
			"cancellation_fee": booking.CancellationFee,
		})
	})
}

func bookingIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid booking ID",
		})
		return 0, false
	}
	return uint(id), true
}
