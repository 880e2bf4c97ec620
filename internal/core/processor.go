package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatcart/internal/cart"
	"chatcart/internal/llm"
	"chatcart/internal/logger"
	"chatcart/internal/nlu"
	"chatcart/internal/observability"
	"chatcart/internal/services"
	"chatcart/internal/storage"
	"chatcart/pkg"

	"github.com/rs/zerolog"
)

// Processor is the session synchronizer. It sequences classification,
// resolution, filtering, the generative fallback and the action executor for
// each turn, and writes the outcome through to the memory store.
type Processor struct {
	sessions     *storage.SessionManager
	store        storage.Store
	catalog      Catalog
	fallback     *llm.Fallback
	metrics      *observability.Metrics
	displayLimit int
	now          func() time.Time
}

// Config wires the processor's collaborators. Fallback and Metrics may be nil.
type Config struct {
	Sessions     *storage.SessionManager
	Store        storage.Store
	Catalog      Catalog
	Fallback     *llm.Fallback
	Metrics      *observability.Metrics
	DisplayLimit int
}

func NewProcessor(cfg Config) *Processor {
	limit := cfg.DisplayLimit
	if limit <= 0 {
		limit = services.DefaultDisplayLimit
	}
	return &Processor{
		sessions:     cfg.Sessions,
		store:        cfg.Store,
		catalog:      cfg.Catalog,
		fallback:     cfg.Fallback,
		metrics:      cfg.Metrics,
		displayLimit: limit,
		now:          time.Now,
	}
}

// StartSession opens a conversation for userID, seeded from the durable
// record, and returns it with its greeting.
func (p *Processor) StartSession(ctx context.Context, userID, userName string) (*storage.Session, string, error) {
	if userID == "" {
		return nil, "", errors.New("user id is required")
	}
	rec := p.loadRecord(ctx, userID)
	greeting := Greeting(rec, userName, p.now())

	sess := p.sessions.Create(userID, seedState(rec))
	sess.Update(func(st *storage.State) {
		st.AppendTranscript("assistant", greeting, p.now())
	})

	if userName != "" && userName != rec.UserName {
		if _, err := p.store.Merge(ctx, userID, storage.Patch{UserName: &userName}); err != nil {
			p.persistenceFailed(err, userID)
		}
	}
	p.setActiveSessions()

	logger.Info().
		Str("session_id", sess.ID).
		Str("user_id", userID).
		Int("cart_lines", len(rec.CartMirror)).
		Msg("Session started")
	return sess, greeting, nil
}

// ResetSession discards the session context and reseeds it from the durable
// record, so the last exchange and filters carry over.
func (p *Processor) ResetSession(ctx context.Context, sessionID string) (string, error) {
	sess, err := p.sessions.Get(sessionID)
	if err != nil {
		return "", err
	}
	if !sess.TryBegin() {
		return "", ErrTurnInProgress
	}
	defer sess.End()

	rec := p.loadRecord(ctx, sess.UserID)
	greeting := Greeting(rec, "", p.now())
	seeded := seedState(rec)
	sess.Update(func(st *storage.State) {
		*st = seeded
		st.AppendTranscript("assistant", greeting, p.now())
	})

	logger.Info().Str("session_id", sessionID).Str("user_id", sess.UserID).Msg("Session reset")
	return greeting, nil
}

// Greeting returns the opening message for userID.
func (p *Processor) Greeting(ctx context.Context, userID string) string {
	return Greeting(p.loadRecord(ctx, userID), "", p.now())
}

// Memory returns the user's durable record.
func (p *Processor) Memory(ctx context.Context, userID string) (*storage.Record, error) {
	rec, err := p.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory for %s: %w", userID, err)
	}
	return rec, nil
}

// RecordOrder counts a placed order and clears the cart mirror and the carts
// of the user's active sessions. It fails with ErrTurnInProgress while any of
// those sessions is mid-turn.
func (p *Processor) RecordOrder(ctx context.Context, userID string) (*storage.Record, error) {
	sessions := p.sessions.ForUser(userID)
	held := make([]*storage.Session, 0, len(sessions))
	defer func() {
		for _, sess := range held {
			sess.End()
		}
	}()
	for _, sess := range sessions {
		if !sess.TryBegin() {
			return nil, ErrTurnInProgress
		}
		held = append(held, sess)
	}

	empty := []pkg.CartLine{}
	rec, err := p.store.Merge(ctx, userID, storage.Patch{OrdersDelta: 1, CartMirror: &empty})
	if err != nil {
		return nil, fmt.Errorf("failed to record order for %s: %w", userID, err)
	}
	for _, sess := range held {
		sess.Update(func(st *storage.State) {
			st.Cart.Clear()
		})
	}
	logger.Info().Str("user_id", userID).Int("total_orders", rec.TotalOrders).Msg("Order recorded")
	return rec, nil
}

// AddManual adds a product to the session cart outside the conversation, as
// the storefront's add button does. The line is marked as not added by the
// assistant.
func (p *Processor) AddManual(ctx context.Context, sessionID string, productID pkg.ProductID, quantity int) (pkg.CartLine, error) {
	sess, err := p.sessions.Get(sessionID)
	if err != nil {
		return pkg.CartLine{}, err
	}
	product, ok := p.catalog.Lookup(ctx, productID)
	if !ok {
		return pkg.CartLine{}, fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	if !sess.TryBegin() {
		return pkg.CartLine{}, ErrTurnInProgress
	}
	defer sess.End()

	var (
		res   cart.AddResult
		lines []pkg.CartLine
	)
	sess.Update(func(st *storage.State) {
		res = st.Cart.Add(product, min(max(quantity, 1), nlu.MaxQuantity), false, p.now())
		lines = st.Cart.Lines()
	})
	if p.metrics != nil {
		p.metrics.CartAdds.WithLabelValues("manual").Inc()
	}

	patch := storage.Patch{CartMirror: &lines, Added: []pkg.ProductRef{product.Ref()}}
	if _, err := p.store.Merge(ctx, sess.UserID, patch); err != nil {
		p.persistenceFailed(err, sess.UserID)
	}
	return res.Line, nil
}

// Cart returns the session's cart lines.
func (p *Processor) Cart(sessionID string) ([]pkg.CartLine, error) {
	sess, err := p.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot().Cart.Lines(), nil
}

// Transcript returns the session's UI log.
func (p *Processor) Transcript(sessionID string) ([]storage.TranscriptEntry, error) {
	sess, err := p.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot().Transcript, nil
}

// turn carries the working state of one HandleTurn call.
type turn struct {
	sess      *storage.Session
	state     storage.State
	utterance string
	intent    pkg.Intent
	filters   pkg.Filters
	category  string
	log       zerolog.Logger
}

// HandleTurn processes one utterance. Only ErrInvalidUtterance,
// ErrTurnInProgress and storage.ErrSessionNotFound are returned; every other
// failure ends in a normal reply.
func (p *Processor) HandleTurn(ctx context.Context, sessionID, utterance string) (*TurnOutput, error) {
	start := p.now()

	text, err := ValidateUtterance(utterance)
	if err != nil {
		return nil, err
	}
	sess, err := p.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.TryBegin() {
		return nil, ErrTurnInProgress
	}
	defer sess.End()

	sess.Update(func(st *storage.State) {
		st.AppendTranscript("user", text, start)
	})

	st := sess.Snapshot()
	t := &turn{
		sess:      sess,
		state:     st,
		utterance: text,
		intent:    nlu.Classify(text),
		filters:   st.ActiveFilters.Clone(),
		category:  st.CurrentCategory,
		log:       logger.ForSession(sessionID, sess.UserID),
	}
	t.log.Info().Str("intent", string(t.intent)).Msg("Turn started")

	var action Action
	switch t.intent {
	case pkg.IntentViewCart:
		action = NoAction{Message: DescribeCart(st.Cart)}
	case pkg.IntentAddToCart:
		action = p.resolveAdd(ctx, t)
	default:
		action = p.listProducts(ctx, t)
	}

	now := p.now()
	eff := Execute(action, t.state.Cart, now)

	sess.Update(func(s *storage.State) {
		s.Cart = t.state.Cart
		s.ActiveFilters = t.filters
		s.CurrentCategory = t.category
		s.CurrentTopic = t.intent
		s.LastUserUtterance = text
		s.LastAssistantReply = eff.Reply
		if eff.Displayed != nil {
			s.LastDisplayed = eff.Displayed
		}
		s.TurnCount++
	})

	out := &TurnOutput{
		Response: eff.Reply,
		Intent:   t.intent,
		Action:   action.Kind(),
		Products: eff.Displayed,
	}
	if err := p.persist(ctx, t, eff, now); err != nil {
		p.persistenceFailed(err, sess.UserID)
		out.PersistenceFailed = true
	}

	sess.Update(func(s *storage.State) {
		s.AppendTranscript("assistant", eff.Reply, p.now())
	})

	out.ProcessingTime = p.now().Sub(start)
	if p.metrics != nil {
		if len(eff.Added) > 0 {
			p.metrics.CartAdds.WithLabelValues("assistant").Add(float64(len(eff.Added)))
		}
		p.metrics.ObserveTurn(string(t.intent), string(out.Action), out.ProcessingTime)
	}
	p.setActiveSessions()

	t.log.Info().
		Str("intent", string(t.intent)).
		Str("action", string(out.Action)).
		Int("added", len(eff.Added)).
		Dur("took", out.ProcessingTime).
		Msg("Turn completed")
	return out, nil
}

// resolveAdd maps an add-to-cart utterance to the product it refers to. The
// generative fallback is asked only when the resolver finds nothing.
func (p *Processor) resolveAdd(ctx context.Context, t *turn) Action {
	product, kind, ok := nlu.Resolve(t.utterance, t.state.LastDisplayed, t.state.CurrentCategory)
	if ok {
		t.log.Debug().Str("product_id", product.ID.String()).Str("match", string(kind)).Msg("Reference resolved")
		return AddToCart{Items: []CartItem{{Product: product, Quantity: nlu.ExtractQuantity(t.utterance)}}}
	}
	if !p.fallback.Available() {
		return NoAction{Message: referMessage}
	}
	return p.ask(ctx, t)
}

// listProducts runs the contextual filter and falls back to the generative
// model when it yields nothing or the query is open-ended.
func (p *Processor) listProducts(ctx context.Context, t *turn) Action {
	found := services.FilterProducts(p.catalog.Products(ctx), t.intent, t.utterance, &t.filters, p.displayLimit)

	switch t.intent {
	case pkg.IntentElectronics:
		t.category = nlu.CategoryElectronics
	case pkg.IntentFashion:
		t.category = nlu.CategoryFashion
	case pkg.IntentPriceFilter:
		if t.filters.Category != "" {
			t.category = t.filters.Category
		}
	}

	if len(found) > 0 && t.intent != pkg.IntentGeneral {
		return Recommend{Products: found, Message: listHeader(t.intent, t.filters)}
	}
	if !p.fallback.Available() {
		if t.intent == pkg.IntentGeneral && len(found) == 0 {
			return NoAction{Message: helpMessage}
		}
		if len(found) > 0 {
			return Recommend{Products: found, Message: listHeader(t.intent, t.filters)}
		}
		return NoAction{Message: noMatchMessage}
	}
	return p.ask(ctx, t)
}

// ask invokes the generative fallback. Upstream failures are recovered into
// a reply that points at what the user can still do.
func (p *Processor) ask(ctx context.Context, t *turn) Action {
	reply, outcome, err := p.fallback.Ask(ctx, llm.PromptInput{
		Catalog:            p.catalog.CatalogText(ctx),
		CartIDs:            t.state.Cart.IDs(),
		LastUserUtterance:  t.state.LastUserUtterance,
		LastAssistantReply: t.state.LastAssistantReply,
		Filters:            t.filters,
		Utterance:          t.utterance,
	})
	if err != nil {
		return NoAction{Message: upstreamReply(t.state)}
	}
	if outcome == llm.OutcomeMalformed {
		return NoAction{Message: reply.Message}
	}
	return ActionFromReply(reply, func(id pkg.ProductID) (pkg.Product, bool) {
		return p.catalog.Lookup(ctx, id)
	})
}

// persist writes the turn through to the memory store in one merge.
func (p *Processor) persist(ctx context.Context, t *turn, eff Effect, now time.Time) error {
	lines := t.state.Cart.Lines()
	filters := t.filters.Clone()
	category := t.category
	patch := storage.Patch{
		LastUserUtterance:  &t.utterance,
		LastAssistantReply: &eff.Reply,
		ChatAppend:         []pkg.ChatEntry{{Utterance: t.utterance, Reply: eff.Reply, Timestamp: now.UTC()}},
		CartMirror:         &lines,
		Added:              eff.Added,
		Mentioned:          eff.Mentioned,
		ActiveFilters:      &filters,
		CurrentCategory:    &category,
		LastIntent:         t.intent,
	}
	if _, err := p.store.Merge(ctx, t.sess.UserID, patch); err != nil {
		return fmt.Errorf("failed to write memory for %s: %w", t.sess.UserID, err)
	}
	return nil
}

func (p *Processor) loadRecord(ctx context.Context, userID string) *storage.Record {
	rec, err := p.store.Get(ctx, userID)
	if err != nil {
		p.persistenceFailed(err, userID)
		return storage.NewRecord(userID, p.now())
	}
	return rec
}

func (p *Processor) persistenceFailed(err error, userID string) {
	logger.Warn().Err(err).Str("user_id", userID).Msg("Memory store unavailable, continuing with session context")
	if p.metrics != nil {
		p.metrics.PersistenceFailures.Inc()
	}
}

func (p *Processor) setActiveSessions() {
	if p.metrics != nil {
		p.metrics.ActiveSessions.Set(float64(p.sessions.Len()))
	}
}

func seedState(rec *storage.Record) storage.State {
	return storage.State{
		Cart:               cart.New(rec.CartMirror),
		LastUserUtterance:  rec.LastUserUtterance,
		LastAssistantReply: rec.LastAssistantReply,
		ActiveFilters:      rec.Context.ActiveFilters.Clone(),
		CurrentCategory:    rec.Context.CurrentCategory,
		CurrentTopic:       rec.Context.LastIntent,
	}
}

func upstreamReply(st storage.State) string {
	switch {
	case len(st.LastDisplayed) > 0:
		return upstreamMessage + ` You can still add a product shown earlier, for example "add the first one".`
	case st.CurrentCategory != "":
		return upstreamMessage + fmt.Sprintf(` Meanwhile, try "show me %s".`, st.CurrentCategory)
	}
	return upstreamMessage
}

func listHeader(intent pkg.Intent, f pkg.Filters) string {
	switch intent {
	case pkg.IntentElectronics:
		return "Here are our top electronics picks:"
	case pkg.IntentFashion:
		return "Here are our top fashion picks:"
	case pkg.IntentPriceFilter:
		if f.MaxPrice != nil {
			return fmt.Sprintf("Here are products within ₹%s:", services.FormatPrice(*f.MaxPrice))
		}
		return "Here are some budget-friendly picks:"
	case pkg.IntentGift:
		return "These make great gifts:"
	case pkg.IntentRecommendation:
		return "You might like these:"
	case pkg.IntentSpecificProduct:
		return "Here's what I found:"
	}
	return defaultRecMessage
}
