package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/viewtube/account-system/internal/core/ports"
)

// ProfileHandler handles the channel-profile and watch-history reads and
// the subscription toggle.
type ProfileHandler struct {
	profiles ports.ProfileService
}

func NewProfileHandler(profiles ports.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Channel returns the public channel profile for a username. The route runs
// behind the lenient auth middleware: an authenticated viewer gets a
// personal is_subscribed flag, an anonymous one gets false.
//
// @Summary      Get a channel profile by username
// @Tags         profiles
// @Produce      json
// @Param        username  path      string  true  "Channel username"
// @Success      200       {object}  apiResponse
// @Failure      400       {object}  map[string]any
// @Failure      404       {object}  map[string]any
// @Router       /users/c/{username} [get]
func (h *ProfileHandler) Channel(c echo.Context) error {
	viewerID, _ := c.Get("user_id").(string)

	profile, err := h.profiles.ChannelProfile(c.Request().Context(), viewerID, c.Param("username"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, profile, "channel profile fetched")
}

// History returns the authenticated user's watch history in watch order.
//
// @Summary      Get the current user's watch history
// @Tags         profiles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  apiResponse
// @Router       /users/history [get]
func (h *ProfileHandler) History(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	history, err := h.profiles.WatchHistory(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, history, "watch history fetched")
}

// ToggleSubscription subscribes the current user to a channel, or
// unsubscribes when an edge already exists.
//
// @Summary      Toggle a subscription to a channel
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Param        channelId  path      string  true  "Channel user id"
// @Success      200        {object}  apiResponse
// @Failure      400        {object}  map[string]any
// @Failure      404        {object}  map[string]any
// @Router       /subscriptions/c/{channelId} [post]
func (h *ProfileHandler) ToggleSubscription(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	subscribed, err := h.profiles.ToggleSubscription(c.Request().Context(), userID, c.Param("channelId"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, subscriptionToggleResponse{Subscribed: subscribed}, "subscription toggled")
}
