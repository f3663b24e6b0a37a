package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hongminglow/papertrade/internal/http/respond"
	"github.com/hongminglow/papertrade/internal/logging"
	"github.com/hongminglow/papertrade/internal/middleware"
	"github.com/hongminglow/papertrade/internal/models/dto"
	"github.com/hongminglow/papertrade/internal/trading"
	"github.com/hongminglow/papertrade/internal/view"
	"github.com/sirupsen/logrus"
)

// TradingHandler serves the pages that need a logged-in user.
type TradingHandler struct {
	trading *trading.Service
	view    *view.Renderer
}

// NewTradingHandler constructs the handler.
func NewTradingHandler(svc *trading.Service, renderer *view.Renderer) *TradingHandler {
	return &TradingHandler{trading: svc, view: renderer}
}

// Register attaches the routes. The router must already enforce login.
func (h *TradingHandler) Register(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/buy", h.handleBuyForm)
	r.Post("/buy", h.handleBuy)
	r.Get("/sell", h.handleSellForm)
	r.Post("/sell", h.handleSell)
	r.Get("/quote", h.handleQuoteForm)
	r.Post("/quote", h.handleQuote)
	r.Get("/history", h.handleHistory)
	r.Post("/history", h.handleClearHistory)
	r.Post("/history/clear", h.handleClearHistory)
}

func (h *TradingHandler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		respond.Redirect(w, r, "/login")
	}
	return id, ok
}

func (h *TradingHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	portfolio, err := h.trading.Portfolio(r.Context(), userID)
	if err != nil {
		apologize(w, r, h.view, true, tradeErrors, err)
		return
	}
	h.view.Render(w, http.StatusOK, "index", view.Page{LoggedIn: true, Data: portfolio})
}

func (h *TradingHandler) handleBuyForm(w http.ResponseWriter, _ *http.Request) {
	h.view.Render(w, http.StatusOK, "buy", view.Page{LoggedIn: true})
}

func (h *TradingHandler) handleBuy(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	form := dto.ParseTradeForm(r)
	tx, err := h.trading.Buy(r.Context(), userID, form.Symbol, form.Shares)
	if err != nil {
		apologize(w, r, h.view, true, tradeErrors, err)
		return
	}
	logging.FromContext(r.Context()).WithFields(logrus.Fields{
		"symbol": tx.Symbol, "shares": tx.Shares, "price": tx.Price.String(),
	}).Info("bought shares")
	respond.Redirect(w, r, "/")
}

func (h *TradingHandler) handleSellForm(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	symbols, err := h.trading.OwnedSymbols(r.Context(), userID)
	if err != nil {
		apologize(w, r, h.view, true, tradeErrors, err)
		return
	}
	h.view.Render(w, http.StatusOK, "sell", view.Page{LoggedIn: true, Data: symbols})
}

func (h *TradingHandler) handleSell(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	form := dto.ParseTradeForm(r)
	tx, err := h.trading.Sell(r.Context(), userID, form.Symbol, form.Shares)
	if err != nil {
		apologize(w, r, h.view, true, tradeErrors, err)
		return
	}
	logging.FromContext(r.Context()).WithFields(logrus.Fields{
		"symbol": tx.Symbol, "shares": tx.Shares, "price": tx.Price.String(),
	}).Info("sold shares")
	respond.Redirect(w, r, "/")
}

func (h *TradingHandler) handleQuoteForm(w http.ResponseWriter, _ *http.Request) {
	h.view.Render(w, http.StatusOK, "quote", view.Page{LoggedIn: true})
}

func (h *TradingHandler) handleQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.trading.Quote(r.Context(), dto.ParseTradeForm(r).Symbol)
	if err != nil {
		apologize(w, r, h.view, true, tradeErrors, err)
		return
	}
	h.view.Render(w, http.StatusOK, "quoted", view.Page{LoggedIn: true, Data: q})
}

func (h *TradingHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	history, err := h.trading.History(r.Context(), userID)
	if err != nil {
		apologize(w, r, h.view, true, tradeErrors, err)
		return
	}
	h.view.Render(w, http.StatusOK, "history", view.Page{LoggedIn: true, Data: history})
}

// handleClearHistory only deletes when the form carries confirm=yes.
func (h *TradingHandler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if !dto.ParseClearHistoryForm(r).Confirmed() {
		h.view.Apology(w, true, http.StatusBadRequest, "confirm to clear your history")
		return
	}
	if _, err := h.trading.ClearHistory(r.Context(), userID); err != nil {
		apologize(w, r, h.view, true, tradeErrors, err)
		return
	}
	respond.Redirect(w, r, "/history")
}
