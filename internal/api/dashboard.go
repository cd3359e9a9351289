package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"affiliate-portal/internal/stats"

	"github.com/gin-gonic/gin"
)

// parseLimit reads ?limit=, falling back to def for missing or non-positive
// values and capping at max.
func parseLimit(raw string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		n = def
	}
	if max > 0 && n > max {
		n = max
	}
	return n
}

func (s *Server) listOrders(c *gin.Context) {
	affiliate := currentAffiliate(c)
	limit := parseLimit(c.Query("limit"), s.cfg.Stats.DefaultLimit, s.cfg.Stats.MaxLimit)

	orders, err := s.dashboard.ListOrders(c.Request.Context(), affiliate.ID, limit)
	if err != nil {
		respondError(c, s.logger, storeError("affiliate_orders", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"orders":  toOrderDTOs(orders),
	})
}

func (s *Server) getStats(c *gin.Context) {
	report, ok := s.buildReport(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   report.Summary,
	})
}

func (s *Server) getReport(c *gin.Context) {
	report, ok := s.buildReport(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   report.Summary,
		"ratios":  report.Ratios,
		"monthly": report.Monthly,
	})
}

// buildReport loads the full order history and the click counter. It writes
// the error response itself and reports whether the caller should continue.
func (s *Server) buildReport(c *gin.Context) (stats.Report, bool) {
	ctx := c.Request.Context()
	affiliate := currentAffiliate(c)

	clicks, err := s.dashboard.CountClicks(ctx, affiliate.ID)
	if err != nil {
		respondError(c, s.logger, storeError("affiliate_clicks", err))
		return stats.Report{}, false
	}

	orders, err := s.dashboard.ListAllOrders(ctx, affiliate.ID, s.cfg.Stats.MaxOrders)
	if err != nil {
		respondError(c, s.logger, storeError("affiliate_orders", err))
		return stats.Report{}, false
	}

	return stats.Build(clicks, orders, affiliate.CommissionRate, s.cfg.Stats.Location(), s.cfg.Stats.MonthlyLimit), true
}

func (s *Server) getProfile(c *gin.Context) {
	affiliate := currentAffiliate(c)

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"affiliate":     toAffiliateDTO(affiliate),
		"referral_link": referralLink(s.cfg.Stats.ShopURL, s.cfg.Stats.DiscountParam, affiliate.PromoCode),
	})
}

// referralLink is the shop URL with the promo code applied as a discount.
func referralLink(shopURL, param, promoCode string) string {
	u, err := url.Parse(shopURL)
	if err != nil {
		return shopURL
	}
	q := u.Query()
	q.Set(param, promoCode)
	u.RawQuery = q.Encode()
	return u.String()
}
