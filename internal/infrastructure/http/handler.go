package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	appCheckout "github.com/shoply/checkout/internal/application/checkout"
	appStock "github.com/shoply/checkout/internal/application/stock"
	appWallet "github.com/shoply/checkout/internal/application/wallet"
	domainAddress "github.com/shoply/checkout/internal/domain/address"
	domainCoupon "github.com/shoply/checkout/internal/domain/coupon"
	domainOrder "github.com/shoply/checkout/internal/domain/order"
	domainProduct "github.com/shoply/checkout/internal/domain/product"
	domainStock "github.com/shoply/checkout/internal/domain/stock"
	domainWallet "github.com/shoply/checkout/internal/domain/wallet"
	"github.com/shoply/checkout/internal/lock"
	"github.com/shoply/checkout/internal/pkg/optimistic"
)

type Handler struct {
	checkoutService *appCheckout.Service
	walletService   *appWallet.Service
	stockService    *appStock.Service
}

func NewHandler(checkoutSvc *appCheckout.Service, walletSvc *appWallet.Service, stockSvc *appStock.Service) *Handler {
	return &Handler{
		checkoutService: checkoutSvc,
		walletService:   walletSvc,
		stockService:    stockSvc,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/orders", h.method(http.MethodPost, h.handlePlaceOrder))
	mux.HandleFunc("/orders/cancel", h.method(http.MethodPost, h.handleCancelOrder))
	mux.HandleFunc("/order", h.method(http.MethodGet, h.handleGetOrder))
	mux.HandleFunc("/wallet", h.method(http.MethodGet, h.handleGetWallet))
	mux.HandleFunc("/wallet/charge", h.method(http.MethodPost, h.handleChargeWallet))
	mux.HandleFunc("/wallet/entries", h.method(http.MethodGet, h.handleWalletEntries))
	mux.HandleFunc("/stock/increase", h.method(http.MethodPost, h.handleIncreaseStock))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

type orderItemRequest struct {
	ProductID          string `json:"product_id"`
	Quantity           int    `json:"quantity"`
	PromotionDiscount  int64  `json:"promotion_discount"`
	ItemCouponDiscount int64  `json:"item_coupon_discount"`
}

type placeOrderRequest struct {
	UserID   string             `json:"user_id"`
	CouponID string             `json:"coupon_id"`
	Items    []orderItemRequest `json:"items"`
}

type placeOrderResponse struct {
	OrderID        string             `json:"order_id"`
	Status         domainOrder.Status `json:"status"`
	BasePrice      int64              `json:"base_price"`
	DiscountAmount int64              `json:"discount_amount"`
	PaymentAmount  int64              `json:"payment_amount"`
	CartCleared    bool               `json:"cart_cleared"`
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	items := make([]appCheckout.ItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = appCheckout.ItemInput{
			ProductID:          it.ProductID,
			Quantity:           it.Quantity,
			PromotionDiscount:  it.PromotionDiscount,
			ItemCouponDiscount: it.ItemCouponDiscount,
		}
	}

	result, err := h.checkoutService.PlaceOrder(r.Context(), appCheckout.PlaceOrderInput{
		UserID:   req.UserID,
		CouponID: req.CouponID,
		Items:    items,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, placeOrderResponse{
		OrderID:        result.OrderID,
		Status:         result.Status,
		BasePrice:      result.BasePrice,
		DiscountAmount: result.DiscountAmount,
		PaymentAmount:  result.PaymentAmount,
		CartCleared:    result.CartCleared,
	})
}

type cancelOrderRequest struct {
	UserID  string `json:"user_id"`
	OrderID string `json:"order_id"`
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.checkoutService.CancelOrder(r.Context(), req.UserID, req.OrderID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domainOrder.StatusCancelled)})
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("id")
	userID := r.URL.Query().Get("user_id")

	order, err := h.checkoutService.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.walletService.Get(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

type chargeWalletRequest struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
}

func (h *Handler) handleChargeWallet(w http.ResponseWriter, r *http.Request) {
	var req chargeWalletRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	wallet, err := h.walletService.Charge(r.Context(), req.UserID, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (h *Handler) handleWalletEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.walletService.Entries(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type increaseStockRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) handleIncreaseStock(w http.ResponseWriter, r *http.Request) {
	var req increaseStockRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	item, err := h.stockService.Increase(r.Context(), req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) method(method string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		handler(w, r)
	}
}

func decodeJSON(ctx context.Context, r *http.Request, dst any) error {
	_ = ctx
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainOrder.ErrNotFound),
		errors.Is(err, domainWallet.ErrNotFound),
		errors.Is(err, domainStock.ErrNotFound),
		errors.Is(err, domainCoupon.ErrNotFound),
		errors.Is(err, domainProduct.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domainOrder.ErrNotOwner):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, appCheckout.ErrValidation),
		errors.Is(err, domainWallet.ErrInvalidAmount),
		errors.Is(err, domainWallet.ErrInsufficientBalance),
		errors.Is(err, domainStock.ErrInvalidQuantity),
		errors.Is(err, domainStock.ErrInsufficientStock),
		errors.Is(err, domainCoupon.ErrNotUsable),
		errors.Is(err, domainOrder.ErrInvalidAmount),
		errors.Is(err, domainOrder.ErrInvalidQuantity),
		errors.Is(err, domainOrder.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, optimistic.ErrConflict),
		errors.Is(err, domainOrder.ErrConflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, lock.ErrAcquireTimeout),
		errors.Is(err, lock.ErrSubscribe):
		writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, domainAddress.ErrNoDefault):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
