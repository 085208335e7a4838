package handler

import (
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/botteghino/fiscal-ticketing/internal/repository"
)

// time: "upcoming" (default), "today" (same calendar day), "any" (no time filter)
func (h *PublicBrowseHandler) SearchEvents(c echo.Context) error {
    title := strings.TrimSpace(c.QueryParam("title"))
    venue := strings.TrimSpace(c.QueryParam("venue"))
    timeFilter := strings.ToLower(strings.TrimSpace(c.QueryParam("time")))
    if timeFilter == "" {
        timeFilter = "upcoming"
    }

    page, _ := strconv.Atoi(c.QueryParam("page"))
    if page < 1 { page = 1 }
    ps, _ := strconv.Atoi(c.QueryParam("page_size"))
    if ps < 1 { ps = 20 }
    if ps > 100 { ps = 100 }

    q := repository.EventSearchQuery{
        Title:      title,
        Venue:      venue,
        TimeFilter: timeFilter,
        Page:       page,
        PageSize:   ps,
    }

    items, total, err := h.Events.SearchOnSale(c.Request().Context(), q)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{
            "error":   "database_error",
            "message": err.Error(),
        })
    }

    return c.JSON(http.StatusOK, echo.Map{
        "data":      items,
        "total":     total,
        "page":      page,
        "page_size": ps,
    })
}
