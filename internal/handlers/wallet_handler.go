package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/betpals/internal/middleware"
	"github.com/shopspring/decimal"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *HandlerManager) registerWalletRoutes(api *gin.RouterGroup) {
	wallet := api.Group("/wallet")
	wallet.GET("", h.HandleWallet)
	wallet.POST("/deposit", h.HandleDeposit)
	wallet.POST("/withdraw", h.HandleWithdraw)
	wallet.GET("/export", h.HandleExport)
}

type amountBody struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *HandlerManager) HandleWallet(c *gin.Context) {
	w, err := h.Wallet.Wallet(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *HandlerManager) HandleDeposit(c *gin.Context) {
	var body amountBody
	if !bindJSON(c, &body) {
		return
	}
	w, err := h.Wallet.Deposit(c.Request.Context(), middleware.CurrentUserID(c), body.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *HandlerManager) HandleWithdraw(c *gin.Context) {
	var body amountBody
	if !bindJSON(c, &body) {
		return
	}
	w, err := h.Wallet.Withdraw(c.Request.Context(), middleware.CurrentUserID(c), body.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// HandleExport streams the caller's bet history as an xlsx attachment.
func (h *HandlerManager) HandleExport(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.Wallet.ExportBetHistory(c.Request.Context(), middleware.CurrentUserID(c), &buf); err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("betpals-history-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
