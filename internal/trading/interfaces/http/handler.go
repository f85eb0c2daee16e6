package http

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wyfcoding/tradeportal/internal/trading/application"
	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"github.com/wyfcoding/tradeportal/pkg/logger"
	"github.com/wyfcoding/tradeportal/pkg/response"
	"github.com/wyfcoding/tradeportal/pkg/utils"
)

var tickerPattern = regexp.MustCompile(`^[A-Z]+$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("ticker", func(fl validator.FieldLevel) bool {
			return tickerPattern.MatchString(fl.Field().String())
		})
	}
}

// TradingHandler 账户、交易与校验接口
type TradingHandler struct {
	svc         *application.TradingService
	maxQuantity int64
}

// NewTradingHandler 创建 HTTP 处理器实例
func NewTradingHandler(svc *application.TradingService, maxQuantity int64) *TradingHandler {
	return &TradingHandler{svc: svc, maxQuantity: maxQuantity}
}

// RegisterRoutes 注册路由。orderMiddleware 仅作用于下单接口（如限流）
func (h *TradingHandler) RegisterRoutes(router gin.IRouter, orderMiddleware ...gin.HandlerFunc) {
	router.GET("/health", h.Health)

	accounts := router.Group("/api/accounts")
	{
		accounts.GET("/:id", h.GetAccount)             // 账户概览
		accounts.GET("/:id/balance", h.GetBalance)     // 现金余额
		accounts.GET("/:id/positions", h.GetPositions) // 持仓
	}

	trading := router.Group("/api/trading")
	{
		trading.GET("/quote", h.GetQuote)
		trading.POST("/orders", append(orderMiddleware, h.PlaceOrder)...)
		trading.GET("/orders/:id", h.GetOrder)
		trading.GET("/orders", h.ListOrders)
	}

	router.POST("/api/validation/order", h.ValidateOrder)
}

// PlaceOrderRequest 下单请求
type PlaceOrderRequest struct {
	AccountID      string `json:"account_id" binding:"required,uuid"`
	Symbol         string `json:"symbol" binding:"required,max=10,ticker"`
	Quantity       int64  `json:"quantity" binding:"required,gt=0"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,max=100"`
}

// ValidateOrderRequest 下单前校验请求，业务规则由校验服务处理
type ValidateOrderRequest struct {
	AccountID string `json:"account_id" binding:"required"`
	Symbol    string `json:"symbol"`
	Quantity  int64  `json:"quantity"`
}

// ListOrdersRequest 订单列表查询参数
type ListOrdersRequest struct {
	AccountID  string `form:"account_id" binding:"required,uuid"`
	PageNumber int    `form:"page_number"`
	PageSize   int    `form:"page_size"`
}

// Health 健康检查
func (h *TradingHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "Healthy", "timestamp": time.Now().UTC()})
}

// GetAccount 账户概览
func (h *TradingHandler) GetAccount(c *gin.Context) {
	accountID, ok := accountParam(c)
	if !ok {
		return
	}
	account, err := h.svc.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	response.Success(c, account)
}

// GetBalance 现金余额
func (h *TradingHandler) GetBalance(c *gin.Context) {
	accountID, ok := accountParam(c)
	if !ok {
		return
	}
	balance, err := h.svc.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	response.Success(c, balance)
}

// GetPositions 持仓列表
func (h *TradingHandler) GetPositions(c *gin.Context) {
	accountID, ok := accountParam(c)
	if !ok {
		return
	}
	positions, err := h.svc.GetPositions(c.Request.Context(), accountID)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	response.Success(c, positions)
}

// GetQuote 报价
func (h *TradingHandler) GetQuote(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "Stock symbol is required", nil)
		return
	}
	quote, err := h.svc.GetStockPrice(c.Request.Context(), symbol)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	response.Success(c, quote)
}

// PlaceOrder 下单
func (h *TradingHandler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "Validation failed", nil, validationMessages(err)...)
		return
	}
	if req.Quantity > h.maxQuantity {
		response.ErrorWithStatus(c, http.StatusBadRequest, "Validation failed", nil,
			fmt.Sprintf("Quantity cannot exceed %s shares", utils.GroupThousands(h.maxQuantity)))
		return
	}

	order, err := h.svc.PlaceOrder(c.Request.Context(), application.PlaceOrderCommand{
		AccountID:      req.AccountID,
		Symbol:         req.Symbol,
		Quantity:       req.Quantity,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		// 执行失败时 order 为已提交的失败订单
		h.fail(c, err, order)
		return
	}

	c.Header("Location", "/api/trading/orders/"+order.OrderID)
	response.SuccessWithStatus(c, http.StatusCreated, order, "")
}

// GetOrder 获取订单
func (h *TradingHandler) GetOrder(c *gin.Context) {
	orderID := c.Param("id")
	if _, err := uuid.Parse(orderID); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "Invalid order id", nil)
		return
	}
	order, err := h.svc.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	response.Success(c, order)
}

// ListOrders 账户订单历史
func (h *TradingHandler) ListOrders(c *gin.Context) {
	var req ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "Validation failed", nil, validationMessages(err)...)
		return
	}
	page, err := h.svc.ListOrders(c.Request.Context(), req.AccountID, req.PageNumber, req.PageSize)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	response.Success(c, page)
}

// ValidateOrder 下单前校验，业务规则不通过时仍返回 200
func (h *TradingHandler) ValidateOrder(c *gin.Context) {
	var req ValidateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "Validation failed", nil, validationMessages(err)...)
		return
	}
	result := h.svc.ValidateOrder(c.Request.Context(), application.ValidateOrderQuery{
		AccountID: req.AccountID,
		Symbol:    req.Symbol,
		Quantity:  req.Quantity,
	})
	response.Success(c, result)
}

func accountParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "Invalid account id", nil)
		return "", false
	}
	return id, true
}

// fail 将领域错误映射为 HTTP 状态码
func (h *TradingHandler) fail(c *gin.Context, err error, order *application.OrderDTO) {
	ctx := c.Request.Context()
	var funds *domain.InsufficientFundsError

	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "Account not found", nil)
	case errors.Is(err, domain.ErrOrderNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "Order not found", nil)
	case errors.As(err, &funds):
		logger.Warn(ctx, "order rejected", "error", err)
		response.ErrorWithStatus(c, http.StatusBadRequest, "Insufficient funds", nil, funds.Error())
	case errors.Is(err, domain.ErrExecutionFailed):
		logger.Warn(ctx, "order execution failed", "error", err)
		if order != nil {
			response.ErrorWithStatus(c, http.StatusBadGateway, "Order execution failed", order, order.ErrorMessage)
			return
		}
		response.ErrorWithStatus(c, http.StatusBadGateway, "Order execution failed", nil)
	case errors.Is(err, domain.ErrPriceUnavailable):
		logger.Warn(ctx, "price unavailable", "error", err)
		response.ErrorWithStatus(c, http.StatusServiceUnavailable, "Unable to retrieve current stock price", nil)
	default:
		logger.Error(ctx, "request failed", "path", c.FullPath(), "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "An internal server error occurred", nil)
	}
}

var fieldMessages = map[string]map[string]string{
	"AccountID": {
		"required": "Account ID is required",
		"uuid":     "Account ID must be a valid UUID",
	},
	"Symbol": {
		"required": "Stock symbol is required",
		"max":      "Symbol cannot exceed 10 characters",
		"ticker":   "Symbol must contain only uppercase letters",
	},
	"Quantity": {
		"required": "Quantity must be greater than zero",
		"gt":       "Quantity must be greater than zero",
	},
	"IdempotencyKey": {
		"required": "Idempotency key is required",
		"max":      "Idempotency key cannot exceed 100 characters",
	},
}

// validationMessages 将绑定错误转换为面向调用方的提示
func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"Invalid request body"}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if msg, ok := fieldMessages[fe.Field()][fe.Tag()]; ok {
			out = append(out, msg)
			continue
		}
		out = append(out, fmt.Sprintf("%s is invalid", fe.Field()))
	}
	return out
}
