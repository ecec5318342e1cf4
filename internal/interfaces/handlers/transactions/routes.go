package transactions

import (
	"farmtrade-backend/internal/constants"
	"farmtrade-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// Register mounts the ledger routes on g. Static paths come before /:id.
func (h *Handlers) Register(g fiber.Router) {
	perm := middleware.AuthorizePermission

	g.Post("/", perm(constants.CreateTransaction), h.Create)
	g.Get("/", perm(constants.ViewAllTransactions), h.ListAll)

	g.Get("/top-by-amount", perm(constants.ViewRankings), h.TopByAmount)
	g.Get("/date-range", perm(constants.ViewCompletionWindow), h.ListByDateRange)
	g.Get("/status/:status", perm(constants.ViewAllTransactions), h.ListByStatus)
	g.Get("/crop/:cropType", perm(constants.ViewTransaction), h.ListByCrop)
	g.Get("/farmer/:farmerId/total-amount", perm(constants.ViewTransaction), h.FarmerTotal)
	g.Get("/buyer/:buyerId/total-amount", perm(constants.ViewTransaction), h.BuyerTotal)
	g.Get("/farmer/:farmerId/status/:status", perm(constants.ViewTransaction), h.ListByFarmer)
	g.Get("/buyer/:buyerId/status/:status", perm(constants.ViewTransaction), h.ListByBuyer)
	g.Get("/farmer/:farmerId", perm(constants.ViewTransaction), h.ListByFarmer)
	g.Get("/buyer/:buyerId", perm(constants.ViewTransaction), h.ListByBuyer)

	g.Get("/:id", perm(constants.ViewTransaction), h.Get)
	g.Put("/:id", perm(constants.UpdateTransaction), h.Update)
	g.Delete("/:id", perm(constants.DeleteTransaction), h.Delete)
	g.Put("/:id/status", perm(constants.UpdateTransaction), h.Transition)
	g.Put("/:id/complete", perm(constants.UpdateTransaction), h.Complete)
	g.Put("/:id/cancel", perm(constants.UpdateTransaction), h.Cancel)
	g.Put("/:id/rate", perm(constants.RateTransaction), h.Rate)
	g.Post("/:id/override", perm(constants.OverrideTransaction), h.Override)
}
