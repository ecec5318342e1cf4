package transactions

import (
	"strconv"

	txsvc "farmtrade-backend/internal/application/transactions"
	"farmtrade-backend/internal/domain"
	"farmtrade-backend/internal/middleware"
	"farmtrade-backend/internal/pkg/constants"
	"farmtrade-backend/internal/pkg/pagination"
	"farmtrade-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service         *txsvc.Service
	DefaultPageSize int
	MaxPageSize     int
}

func (h *Handlers) pageRequest(c *fiber.Ctx) (pagination.Request, error) {
	def, max := h.DefaultPageSize, h.MaxPageSize
	if def <= 0 {
		def = pagination.DefaultSize
	}
	if max <= 0 {
		max = pagination.MaxSize
	}
	return pagination.Parse(c, def, max)
}

// POST /api/v1/transactions
func (h *Handlers) Create(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	var body createRequest
	if err := parseBody(c, &body); err != nil {
		return writeError(c, err)
	}
	in, err := body.toInput()
	if err != nil {
		return writeError(c, err)
	}
	if !canCreate(user, in) {
		return writeError(c, errForbidden)
	}
	tx, err := h.Service.Create(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return response.SuccessCreated(c, "Transaction created successfully", h.Service.View(c.UserContext(), tx), nil)
}

// GET /api/v1/transactions?status=&crop=&page=&size=
func (h *Handlers) ListAll(c *fiber.Ctx) error {
	status, err := optionalStatus(c.Query("status"))
	if err != nil {
		return writeError(c, err)
	}
	crop, err := optionalCrop(c.Query("crop"))
	if err != nil {
		return writeError(c, err)
	}
	req, err := h.pageRequest(c)
	if err != nil {
		return writeError(c, err)
	}
	page, err := h.Service.ListAll(c.UserContext(), txsvc.Filter{Status: status, CropType: crop}, req)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Transactions fetched successfully", page.Items, page.Metadata())
}

// GET /api/v1/transactions/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := h.authorizeParticipant(c)
	if err != nil {
		return writeError(c, err)
	}
	v, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Transaction fetched successfully", v, nil)
}

// PUT /api/v1/transactions/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := h.authorizeParticipant(c)
	if err != nil {
		return writeError(c, err)
	}
	var body updateRequest
	if err := parseBody(c, &body); err != nil {
		return writeError(c, err)
	}
	in, err := body.toInput()
	if err != nil {
		return writeError(c, err)
	}
	tx, err := h.Service.Update(c.UserContext(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Transaction updated successfully", h.Service.View(c.UserContext(), tx), nil)
}

// DELETE /api/v1/transactions/:id (admin)
func (h *Handlers) Delete(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	id, err := paramUUID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Service.Delete(c.UserContext(), id, user.UserID); err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Transaction deleted successfully", fiber.Map{"id": id}, nil)
}

// PUT /api/v1/transactions/:id/status {status}
func (h *Handlers) Transition(c *fiber.Ctx) error {
	id, err := h.authorizeParticipant(c)
	if err != nil {
		return writeError(c, err)
	}
	var body statusRequest
	if err := parseBody(c, &body); err != nil {
		return writeError(c, err)
	}
	to, err := optionalStatus(body.Status)
	if err != nil {
		return writeError(c, err)
	}
	tx, err := h.Service.Transition(c.UserContext(), id, *to)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Transaction status updated successfully", h.Service.View(c.UserContext(), tx), nil)
}

// PUT /api/v1/transactions/:id/complete
func (h *Handlers) Complete(c *fiber.Ctx) error {
	id, err := h.authorizeParticipant(c)
	if err != nil {
		return writeError(c, err)
	}
	tx, err := h.Service.Complete(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Transaction completed successfully", h.Service.View(c.UserContext(), tx), nil)
}

// PUT /api/v1/transactions/:id/cancel
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	id, err := h.authorizeParticipant(c)
	if err != nil {
		return writeError(c, err)
	}
	tx, err := h.Service.Cancel(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Transaction cancelled successfully", h.Service.View(c.UserContext(), tx), nil)
}

// PUT /api/v1/transactions/:id/rate?farmerRating=&buyerRating=
// Ratings may also be sent as a JSON body; query parameters win.
// farmerRating is given by the buyer and buyerRating by the farmer.
func (h *Handlers) Rate(c *fiber.Ctx) error {
	id, err := h.authorizeParticipant(c)
	if err != nil {
		return writeError(c, err)
	}
	var body rateRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &body); err != nil {
			return writeError(c, err)
		}
	}
	if v, err := ratingQuery(c, "farmerRating"); err != nil {
		return writeError(c, err)
	} else if v != nil {
		body.FarmerRating = v
	}
	if v, err := ratingQuery(c, "buyerRating"); err != nil {
		return writeError(c, err)
	} else if v != nil {
		body.BuyerRating = v
	}
	if err := checkRater(c, body); err != nil {
		return writeError(c, err)
	}
	tx, err := h.Service.Rate(c.UserContext(), id, body.FarmerRating, body.BuyerRating)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Transaction rated successfully", h.Service.View(c.UserContext(), tx), nil)
}

// POST /api/v1/transactions/:id/override {status, reason} (admin)
func (h *Handlers) Override(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	id, err := paramUUID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var body overrideRequest
	if err := parseBody(c, &body); err != nil {
		return writeError(c, err)
	}
	to, err := optionalStatus(body.Status)
	if err != nil {
		return writeError(c, err)
	}
	tx, err := h.Service.AdminOverride(c.UserContext(), id, *to, user.UserID, body.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Transaction status overridden successfully", h.Service.View(c.UserContext(), tx), nil)
}

// GET /api/v1/transactions/farmer/:farmerId?status=
// GET /api/v1/transactions/farmer/:farmerId/status/:status
func (h *Handlers) ListByFarmer(c *fiber.Ctx) error {
	return h.listByParticipant(c, domain.RoleFarmer, "farmerId")
}

// GET /api/v1/transactions/buyer/:buyerId?status=
// GET /api/v1/transactions/buyer/:buyerId/status/:status
func (h *Handlers) ListByBuyer(c *fiber.Ctx) error {
	return h.listByParticipant(c, domain.RoleBuyer, "buyerId")
}

func (h *Handlers) listByParticipant(c *fiber.Ctx, role domain.ParticipantRole, param string) error {
	partyID, err := h.authorizeParty(c, role, param)
	if err != nil {
		return writeError(c, err)
	}
	raw := c.Params("status")
	if raw == "" {
		raw = c.Query("status")
	}
	status, err := optionalStatus(raw)
	if err != nil {
		return writeError(c, err)
	}
	req, err := h.pageRequest(c)
	if err != nil {
		return writeError(c, err)
	}
	page, err := h.Service.ListByParticipant(c.UserContext(), role, partyID, status, req)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Transactions fetched successfully", page.Items, page.Metadata())
}

// GET /api/v1/transactions/crop/:cropType
func (h *Handlers) ListByCrop(c *fiber.Ctx) error {
	crop, err := optionalCrop(c.Params("cropType"))
	if err != nil {
		return writeError(c, err)
	}
	req, err := h.pageRequest(c)
	if err != nil {
		return writeError(c, err)
	}
	page, err := h.Service.ListByCropType(c.UserContext(), *crop, req)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Transactions fetched successfully", page.Items, page.Metadata())
}

// GET /api/v1/transactions/status/:status (admin)
func (h *Handlers) ListByStatus(c *fiber.Ctx) error {
	status, err := optionalStatus(c.Params("status"))
	if err != nil {
		return writeError(c, err)
	}
	req, err := h.pageRequest(c)
	if err != nil {
		return writeError(c, err)
	}
	page, err := h.Service.ListAll(c.UserContext(), txsvc.Filter{Status: status}, req)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Transactions fetched successfully", page.Items, page.Metadata())
}

// GET /api/v1/transactions/date-range?startDate=&endDate= (admin)
func (h *Handlers) ListByDateRange(c *fiber.Ctx) error {
	start, err := parseDate("startDate", c.Query("startDate"))
	if err != nil {
		return writeError(c, err)
	}
	end, err := parseDate("endDate", c.Query("endDate"))
	if err != nil {
		return writeError(c, err)
	}
	req, err := h.pageRequest(c)
	if err != nil {
		return writeError(c, err)
	}
	page, err := h.Service.ListByCompletionRange(c.UserContext(), start, end, req)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Transactions fetched successfully", page.Items, page.Metadata())
}

// GET /api/v1/transactions/top-by-amount?limit=10 (admin)
func (h *Handlers) TopByAmount(c *fiber.Ctx) error {
	limit := txsvc.DefaultTopLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return response.Error(c, "limit must be a positive integer", fiber.StatusBadRequest, kind("VALIDATION"))
		}
		limit = n
	}
	views, err := h.Service.TopByTotalAmount(c.UserContext(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Top transactions fetched successfully", views, fiber.Map{"count": len(views)})
}

// GET /api/v1/transactions/farmer/:farmerId/total-amount
func (h *Handlers) FarmerTotal(c *fiber.Ctx) error {
	return h.total(c, domain.RoleFarmer, "farmerId")
}

// GET /api/v1/transactions/buyer/:buyerId/total-amount
func (h *Handlers) BuyerTotal(c *fiber.Ctx) error {
	return h.total(c, domain.RoleBuyer, "buyerId")
}

func (h *Handlers) total(c *fiber.Ctx, role domain.ParticipantRole, param string) error {
	partyID, err := h.authorizeParty(c, role, param)
	if err != nil {
		return writeError(c, err)
	}
	sum, err := h.Service.SumTotalAmount(c.UserContext(), partyID, role)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Total amount fetched successfully", fiber.Map{
		"partyId":     partyID,
		"role":        role,
		"totalAmount": sum,
		"formatted":   sum.Currency(),
	}, nil)
}

// authorizeParticipant parses :id and lets admins and the trade's participants through.
func (h *Handlers) authorizeParticipant(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := paramUUID(c, "id")
	if err != nil {
		return uuid.Nil, err
	}
	user, _ := middleware.CurrentUser(c)
	if user.Role == constants.Admin {
		return id, nil
	}
	party, err := uuid.Parse(user.PartyID)
	if err != nil {
		return uuid.Nil, errForbidden
	}
	ok, err := h.Service.IsParticipant(c.UserContext(), id, party)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, errForbidden
	}
	return id, nil
}

// authorizeParty lets admins through, and a farmer or buyer only for their own party id.
func (h *Handlers) authorizeParty(c *fiber.Ctx, role domain.ParticipantRole, param string) (uuid.UUID, error) {
	partyID, err := paramUUID(c, param)
	if err != nil {
		return uuid.Nil, err
	}
	user, _ := middleware.CurrentUser(c)
	if user.Role == constants.Admin {
		return partyID, nil
	}
	if user.Role != roleFor(role) || !sameParty(user.PartyID, partyID) {
		return uuid.Nil, errForbidden
	}
	return partyID, nil
}

// canCreate requires a farmer or buyer to be the matching side of the trade they open.
func canCreate(user middleware.SessionUser, in txsvc.CreateInput) bool {
	switch user.Role {
	case constants.Admin:
		return true
	case constants.Farmer:
		return sameParty(user.PartyID, in.FarmerID)
	case constants.Buyer:
		return sameParty(user.PartyID, in.BuyerID)
	}
	return false
}

// checkRater stops a participant from rating their own side of the trade.
func checkRater(c *fiber.Ctx, body rateRequest) error {
	user, _ := middleware.CurrentUser(c)
	switch user.Role {
	case constants.Farmer:
		if body.FarmerRating != nil {
			return errForbidden
		}
	case constants.Buyer:
		if body.BuyerRating != nil {
			return errForbidden
		}
	}
	return nil
}

func sameParty(sessionParty string, id uuid.UUID) bool {
	p, err := uuid.Parse(sessionParty)
	return err == nil && p == id
}

func roleFor(role domain.ParticipantRole) string {
	if role == domain.RoleBuyer {
		return constants.Buyer
	}
	return constants.Farmer
}
