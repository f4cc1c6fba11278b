package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	conversationRepo "zapagenda/database/repository/conversation"
	tenantRepo "zapagenda/database/repository/tenant"
	"zapagenda/models"
	"zapagenda/services/booking"
	"zapagenda/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	historyWindow   = 10
	catalogCacheTTL = time.Minute
)

// CatalogCacheKey is the Redis key holding a tenant's cached catalog. The
// admin API deletes it on catalog writes.
func CatalogCacheKey(tenantID string) string {
	return fmt.Sprintf("catalog:%s", tenantID)
}

// Orchestrator runs one conversation turn end to end: lock, load, extract,
// generate, route, execute, save.
type Orchestrator struct {
	tenants       tenantRepo.TenantRepository
	conversations conversationRepo.ConversationRepository
	executor      *booking.Executor
	engine        TurnEngine
	lock          Locker
	cache         *redis.Client
}

func NewOrchestrator(
	tenants tenantRepo.TenantRepository,
	conversations conversationRepo.ConversationRepository,
	executor *booking.Executor,
	engine TurnEngine,
	lock Locker,
	cache *redis.Client,
) *Orchestrator {
	return &Orchestrator{
		tenants:       tenants,
		conversations: conversations,
		executor:      executor,
		engine:        engine,
		lock:          lock,
		cache:         cache,
	}
}

// loadCatalog fetches the tenant's catalog, short-cached in Redis since every
// turn needs it and the catalog rarely changes mid-conversation.
func (o *Orchestrator) loadCatalog(ctx context.Context, tenantID string) (models.Catalog, error) {
	key := CatalogCacheKey(tenantID)
	if o.cache != nil {
		if raw, err := o.cache.Get(ctx, key).Result(); err == nil {
			var cached models.Catalog
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached, nil
			}
		}
	}

	services, err := o.tenants.ListServices(ctx, tenantID)
	if err != nil {
		return models.Catalog{}, err
	}
	pros, err := o.tenants.ListProfessionals(ctx, tenantID)
	if err != nil {
		return models.Catalog{}, err
	}
	catalog := models.Catalog{Services: services, Professionals: pros}

	if o.cache != nil {
		if raw, err := json.Marshal(catalog); err == nil {
			if err := o.cache.Set(ctx, key, raw, catalogCacheTTL).Err(); err != nil {
				utils.GetLogger().Debug("catalog cache write failed", zap.Error(err))
			}
		}
	}
	return catalog, nil
}

// RunTurn processes one inbound message and returns the reply to dispatch.
// It holds the per-conversation lock for the whole turn so concurrent
// messages for the same conversation cannot clobber each other's state.
func (o *Orchestrator) RunTurn(ctx context.Context, tenant *models.Tenant, conversationID, phone, incomingText string) (string, error) {
	logger := utils.GetLogger()

	release, err := o.lock.Acquire(ctx, conversationID)
	if err != nil {
		return "", err
	}
	defer release()

	state, lastQuestionKey, err := o.conversations.LoadState(ctx, conversationID)
	if err != nil {
		return "", err
	}
	catalog, err := o.loadCatalog(ctx, tenant.ID)
	if err != nil {
		return "", err
	}

	preState, _ := ExtractSlots(incomingText, state, lastQuestionKey, catalog)

	history, err := o.conversations.RecentLogs(ctx, conversationID, historyWindow)
	if err != nil {
		logger.Warn("failed to load history", zap.String("conversationId", conversationID), zap.Error(err))
	}

	in := TurnInput{
		Tenant:       tenant,
		Catalog:      catalog,
		State:        preState,
		History:      history,
		IncomingText: incomingText,
		Now:          time.Now(),
	}

	if tenant.Settings.UseToolCalling {
		return o.runToolTurn(ctx, tenant, conversationID, phone, in)
	}

	result, err := o.engine.Turn(ctx, in)
	if err != nil {
		// The engine call failed outright (not a parse problem). Keep the
		// extractor's progress and send the generic reprompt.
		logger.Error("engine call failed", zap.String("conversationId", conversationID), zap.Error(err))
		if saveErr := o.conversations.SaveState(ctx, conversationID, preState, lastQuestionKey); saveErr != nil {
			logger.Error("failed to save state after engine error", zap.Error(saveErr))
		}
		return fallbackReply, nil
	}

	merged := ApplyUpdates(preState, result.StateUpdates)
	decision := Route(merged, result, catalog)

	finalReply := result.Reply
	if decision.Reply != "" {
		finalReply = decision.Reply
	}

	finalState := decision.State
	finalQuestionKey := decision.LastQuestionKey

	switch decision.Action {
	case models.ActionCreateHold:
		finalReply, finalState, finalQuestionKey = o.executeHold(ctx, tenant, conversationID, phone, finalReply, finalState, catalog)
	case models.ActionCreatePayment:
		finalReply, finalState = o.executePayment(ctx, tenant, finalReply, finalState)
	case models.ActionCheckPayment:
		finalReply = o.executePaymentCheck(ctx, finalReply, finalState)
	}

	if err := o.conversations.SaveState(ctx, conversationID, finalState, finalQuestionKey); err != nil {
		return "", err
	}
	return finalReply, nil
}

// executeHold runs the hold creation and, on success, chains the deposit
// checkout automatically. Named resolution failures become a menu again;
// checkout failure after a successful hold is reported as a partial success,
// never hidden.
func (o *Orchestrator) executeHold(ctx context.Context, tenant *models.Tenant, conversationID, phone, reply string, state models.BookingState, catalog models.Catalog) (string, models.BookingState, string) {
	logger := utils.GetLogger()

	hold, err := o.executor.CreateHoldBooking(ctx, tenant, conversationID, phone, state)
	if err != nil {
		logger.Warn("hold creation failed", zap.String("conversationId", conversationID), zap.Error(err))
		switch {
		case errors.Is(err, booking.ErrServiceNotFound):
			state.LastOffer = MergeOffer(state.LastOffer, serviceOffer(catalog.Services))
			return UnresolvedServiceMenu(catalog.Services), state, models.QuestionService
		case errors.Is(err, booking.ErrProfessionalNotFound):
			return "Não encontrei esse profissional. Tem preferência por outro?", state, ""
		default:
			return "Tive um erro técnico ao reservar. Pode tentar novamente?", state, ""
		}
	}

	state.HoldBookingID = hold.ID
	state.DepositPercentage = booking.DepositPercent(tenant)

	session, err := o.executor.CreateCheckoutSession(ctx, tenant, hold.ID)
	if err != nil {
		logger.Error("checkout creation failed after hold",
			zap.String("bookingId", hold.ID), zap.Error(err))
		reply += "\n\nPré-reserva realizada! Mas tive um problema ao gerar o link de pagamento. Me avisa que eu tento de novo."
		return reply, state, ""
	}

	state.PaymentID = session.SessionID
	reply += "\n\nPré-reserva realizada! 🔗 Link para pagamento do sinal: " + session.URL + "\n(Assim que pagar, eu confirmo aqui!)"
	return reply, state, ""
}

func (o *Orchestrator) executePayment(ctx context.Context, tenant *models.Tenant, reply string, state models.BookingState) (string, models.BookingState) {
	if state.HoldBookingID == "" {
		reply += "\n(Ops, preciso criar a reserva antes de gerar pagamento. Vamos confirmar os dados?)"
		return reply, state
	}
	session, err := o.executor.CreateCheckoutSession(ctx, tenant, state.HoldBookingID)
	if err != nil {
		utils.GetLogger().Error("payment link error",
			zap.String("bookingId", state.HoldBookingID), zap.Error(err))
		return "Erro ao gerar link de pagamento.", state
	}
	state.PaymentID = session.SessionID
	reply += "\n\n🔗 Link para pagamento: " + session.URL + "\n(Assim que pagar, eu confirmo aqui!)"
	return reply, state
}

func (o *Orchestrator) executePaymentCheck(ctx context.Context, reply string, state models.BookingState) string {
	status, err := o.executor.PaymentStatus(ctx, state.HoldBookingID)
	if err != nil {
		utils.GetLogger().Warn("payment status check failed",
			zap.String("bookingId", state.HoldBookingID), zap.Error(err))
		return reply
	}
	if status == "paid" {
		return "Pagamento confirmado! ✅ Seu horário está garantido."
	}
	return "Ainda não identifiquei o pagamento. Assim que cair, eu confirmo por aqui!"
}

// runToolTurn hands control to the model's tool-calling loop. Side effects
// happen inside the loop through the adapter, which tracks the resulting
// identifiers so the final save reflects them.
func (o *Orchestrator) runToolTurn(ctx context.Context, tenant *models.Tenant, conversationID, phone string, in TurnInput) (string, error) {
	adapter := &toolAdapter{
		orch:           o,
		tenant:         tenant,
		conversationID: conversationID,
		phone:          phone,
		state:          in.State,
	}

	result, err := o.engine.ToolTurn(ctx, in, adapter)
	if err != nil {
		utils.GetLogger().Error("tool turn failed", zap.String("conversationId", conversationID), zap.Error(err))
		if saveErr := o.conversations.SaveState(ctx, conversationID, in.State, ""); saveErr != nil {
			utils.GetLogger().Error("failed to save state after tool turn error", zap.Error(saveErr))
		}
		return fallbackReply, nil
	}

	if err := o.conversations.SaveState(ctx, conversationID, adapter.state, ""); err != nil {
		return "", err
	}
	return result.Reply, nil
}

// toolAdapter binds the booking tools to one turn's tenant and conversation.
type toolAdapter struct {
	orch           *Orchestrator
	tenant         *models.Tenant
	conversationID string
	phone          string
	state          models.BookingState
}

func (a *toolAdapter) ListServices(ctx context.Context) ([]models.Service, error) {
	return a.orch.tenants.ListServices(ctx, a.tenant.ID)
}

func (a *toolAdapter) CheckAvailability(ctx context.Context, professionalID, date, timeOfDay string) (bool, error) {
	return a.orch.executor.CheckAvailability(ctx, a.tenant.ID, professionalID, date, timeOfDay)
}

func (a *toolAdapter) CreateHold(ctx context.Context, updates models.StateUpdates) (string, error) {
	merged := ApplyUpdates(a.state, updates)
	hold, err := a.orch.executor.CreateHoldBooking(ctx, a.tenant, a.conversationID, a.phone, merged)
	if err != nil {
		return "", err
	}
	merged.HoldBookingID = hold.ID
	merged.DepositPercentage = booking.DepositPercent(a.tenant)
	a.state = merged
	return hold.ID, nil
}

func (a *toolAdapter) CreatePaymentLink(ctx context.Context, bookingID string) (*models.CheckoutSession, error) {
	if bookingID == "" {
		bookingID = a.state.HoldBookingID
	}
	session, err := a.orch.executor.CreateCheckoutSession(ctx, a.tenant, bookingID)
	if err != nil {
		return nil, err
	}
	a.state.PaymentID = session.SessionID
	return session, nil
}

func (a *toolAdapter) CheckPaymentStatus(ctx context.Context, bookingID string) (string, error) {
	return a.orch.executor.PaymentStatus(ctx, bookingID)
}

func (a *toolAdapter) ConfirmBooking(ctx context.Context, bookingID string) error {
	_, _, err := a.orch.executor.ConfirmBooking(ctx, bookingID, "", 0, "")
	return err
}
