package trader

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/drakos74/level-trader/client"
	"github.com/drakos74/level-trader/internal/account"
	"github.com/drakos74/level-trader/internal/exit"
	"github.com/drakos74/level-trader/internal/learner"
	"github.com/drakos74/level-trader/internal/level"
	"github.com/drakos74/level-trader/internal/leverage"
	"github.com/drakos74/level-trader/internal/metrics"
	"github.com/drakos74/level-trader/internal/model"
	"github.com/drakos74/level-trader/internal/risk"
	"github.com/drakos74/level-trader/internal/storage"
	ctime "github.com/drakos74/level-trader/internal/time"
	"github.com/drakos74/level-trader/user"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const positionLabel = "position"

var (
	ErrPositionOpen = errors.New("position already open")
	ErrNoPosition   = errors.New("no open position")
)

// State is the persisted state of the loop.
type State struct {
	Position *model.Position `json:"position,omitempty"`
	Exit     exit.State      `json:"exit"`
	Cooldown int             `json:"cooldown"`
	Trades   int             `json:"trades"`
}

// pendingAfter is a closed trade waiting for the price move after its exit.
type pendingAfter struct {
	trade model.ClosedTrade
	bars  int
}

// Loop drives the decisions for a single instrument, one bar at a time.
// It holds at most one position.
type Loop struct {
	config     Config
	store      storage.Store
	key        storage.Key
	ledger     storage.Ledger
	finder     *level.Finder
	entry      *learner.Entry
	stopTarget *learner.StopTarget
	exit       *exit.Manager
	risk       *risk.Controller
	leverage   *leverage.Optimizer
	tracker    *account.Tracker
	notifier   user.Notifier
	observer   *metrics.Observer
	draw       func() float64
	state      State
	day        int64
	price      float64
	now        time.Time
	market     *model.MarketState
	after      []pendingAfter
	lock       *sync.RWMutex
}

// New creates the decision loop and loads the state of its components from the store.
func New(config Config, store storage.Store, ledger storage.Ledger) *Loop {
	scorer := level.NewScorer(level.NewFeatureCalculator(config.Features), config.Weights, store, config.Pair)
	random := rand.New(rand.NewSource(time.Now().UnixNano()))
	l := &Loop{
		config:     config,
		store:      store,
		key:        storage.Key{Pair: config.Pair, Label: positionLabel},
		ledger:     ledger,
		finder:     level.NewFinder(level.NewDiscovery(), scorer, config.Timeframes),
		entry:      learner.NewEntry(config.Entry, store, config.Pair),
		stopTarget: learner.NewStopTarget(config.StopTarget, store, config.Pair),
		exit:       exit.NewManager(config.Exit),
		risk:       risk.NewController(config.Risk),
		leverage:   leverage.NewOptimizer(config.Leverage, store, config.Pair),
		tracker:    account.NewTracker(config.InitialBalance),
		notifier:   user.NewVoid(),
		draw:       random.Float64,
		after:      make([]pendingAfter, 0),
		lock:       new(sync.RWMutex),
	}
	if storage.LoadOr(store, l.key, &l.state) && l.state.Position != nil {
		log.Info().
			Str("pair", config.Pair).
			Str("position", l.state.Position.String()).
			Msg("restored open position")
	}
	return l
}

// WithNotifier sends the trade notifications to the given notifier.
func (l *Loop) WithNotifier(notifier user.Notifier) *Loop {
	l.notifier = notifier
	return l
}

// WithObserver records the loop activity in the given observer.
func (l *Loop) WithObserver(observer *metrics.Observer) *Loop {
	l.observer = observer
	return l
}

// WithDraw replaces the uniform random source of the exploration decision.
func (l *Loop) WithDraw(draw func() float64) *Loop {
	l.draw = draw
	return l
}

// Position returns the open position, if any.
func (l *Loop) Position() (model.Position, bool) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	if l.state.Position == nil {
		return model.Position{}, false
	}
	return *l.state.Position, true
}

// Stats returns the account statistics.
func (l *Loop) Stats() model.AccountStats {
	return l.tracker.Stats()
}

// Balance returns the current balance.
func (l *Loop) Balance() float64 {
	balance, _ := l.tracker.Balance()
	return balance
}

// Weights returns the current level feature weights.
func (l *Loop) Weights() level.Weights {
	return l.finder.Scorer().Weights()
}

// Leverage returns the leverage ledger.
func (l *Loop) Leverage() leverage.Stats {
	return l.leverage.Stats()
}

// Market returns the last market state the loop decided on.
func (l *Loop) Market() (model.MarketState, bool) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	if l.market == nil {
		return model.MarketState{}, false
	}
	return *l.market, true
}

// Done tells if the loop reached the maximum number of trades.
func (l *Loop) Done() bool {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.done()
}

func (l *Loop) done() bool {
	return l.config.MaxTrades > 0 && l.state.Trades >= l.config.MaxTrades
}

// Run steps through the source until it is exhausted, the context is done or the trades run out.
// An open position is closed at the last price once the source is exhausted.
func (l *Loop) Run(ctx context.Context, source client.Source) error {
	for {
		window, err := source.Next(ctx)
		if errors.Is(err, client.Done) {
			break
		}
		if err != nil {
			return fmt.Errorf("could not get next bar: %w", err)
		}
		if err := l.Step(ctx, window); err != nil {
			return fmt.Errorf("could not process bar: %w", err)
		}
		if _, open := l.Position(); !open && l.Done() {
			log.Info().Int("trades", l.config.MaxTrades).Msg("max trades reached")
			break
		}
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	if l.state.Position != nil {
		if _, err := l.close(l.price, l.now, model.ForceClose); err != nil {
			return fmt.Errorf("could not close position: %w", err)
		}
	}
	l.flush()
	return nil
}

// Step processes the history up to the last closed bar.
func (l *Loop) Step(ctx context.Context, window model.Klines) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	last, ok := window.Last()
	if !ok || last.Close <= 0 {
		return nil
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	now := last.Stamp()
	l.price = last.Close
	l.now = now
	l.rollover(now)
	l.settle(last.Close)

	if l.state.Position == nil {
		if l.state.Cooldown > 0 {
			l.state.Cooldown--
			return nil
		}
		if l.done() {
			return nil
		}
		if decision := l.risk.CanTrade(); !decision.Allowed {
			log.Debug().
				Str("reason", decision.Reason).
				Float64("daily", l.risk.DailyPnL()).
				Msg("trading blocked")
			return nil
		}
	}

	snapshot := model.BuildSnapshot(window)
	state := NewMarketState(snapshot, last.Close, now, l.finder.Find(snapshot, last.Close))
	l.market = &state

	if l.state.Position != nil {
		return l.manage(state)
	}
	return l.enter(state)
}

// rollover resets the daily risk limits on a new UTC day.
func (l *Loop) rollover(now time.Time) {
	day := ctime.Day(now)
	if l.day != 0 && day != l.day {
		l.risk.Reset()
		log.Debug().Time("day", now).Msg("daily risk reset")
	}
	l.day = day
}

// valid returns the level score if the level is close and strong enough to trade against.
func (l *Loop) valid(state model.MarketState, lvl *model.Level) (float64, bool) {
	d, ok := state.Distance(lvl)
	if !ok || d >= l.config.DistanceThreshold || lvl.Score < l.config.MinLevelScore {
		return 0, false
	}
	return lvl.Score, true
}

// choose picks the side of the stronger valid level.
func (l *Loop) choose(state model.MarketState) (model.Direction, model.EntryReason, *model.Level, bool) {
	support, longOK := l.valid(state, state.BestSupport)
	resistance, shortOK := l.valid(state, state.BestResistance)
	switch {
	case longOK && shortOK:
		if support > resistance {
			return model.Long, model.NearSupport, state.BestSupport, true
		}
		return model.Short, model.NearResistance, state.BestResistance, true
	case longOK:
		return model.Long, model.NearSupport, state.BestSupport, true
	case shortOK:
		return model.Short, model.NearResistance, state.BestResistance, true
	}
	return model.NoDirection, "", nil, false
}

func (l *Loop) enter(state model.MarketState) error {
	direction, reason, anchor, ok := l.choose(state)
	if !ok {
		return nil
	}
	balance, _ := l.tracker.Balance()
	if balance <= 0 {
		log.Warn().Float64("balance", balance).Msg("no balance left")
		return nil
	}

	prediction := l.entry.Predict(learner.EntryInput{
		State:      state,
		Direction:  direction,
		Reason:     reason,
		Conditions: learner.ConditionsOf(state),
		BaseScore:  anchor.Score,
		Draw:       l.draw(),
	})
	if !prediction.Take() {
		l.observer.Entry(direction, metrics.Skipped)
		log.Debug().
			Str("direction", string(direction)).
			Float64("score", prediction.Score).
			Float64("threshold", prediction.Threshold).
			Msg("entry skipped")
		return nil
	}
	decision := metrics.Taken
	if prediction.Score < prediction.Threshold {
		decision = metrics.Explored
	}

	sizing := l.stopTarget.Predict(state, direction)
	recommendation := l.leverage.Recommend(prediction.Score, l.tracker.Stats(), state.Time)
	value := balance * l.config.PositionSizePct / 100 * float64(recommendation.Leverage)

	s := direction.Sign()
	position := model.Position{
		TradeID:     l.tradeID(),
		Direction:   direction,
		EntryPrice:  state.Price,
		EntryTime:   state.Time,
		Quantity:    value / state.Price,
		StopLoss:    state.Price * (1 - s*sizing.StopPct),
		TakeProfit:  state.Price * (1 + s*sizing.TargetPct),
		EntryReason: reason,
		EntryScore:  anchor.Score,
		Leverage:    recommendation.Leverage,
		Support:     state.BestSupport,
		Resistance:  state.BestResistance,
	}
	if l.config.AnchorLevels {
		position.StopLoss, position.TakeProfit = anchored(position, sizing.StopPct, sizing.TargetPct)
	}
	if err := l.open(position); err != nil {
		return err
	}
	l.entry.Open(position.TradeID, prediction)
	l.stopTarget.Open(position.TradeID, sizing)
	l.observer.Entry(direction, decision)
	log.Debug().
		Str("trade", position.TradeID).
		Str("decision", decision).
		Str("leverage", recommendation.Explanation).
		Msg("entry")
	return nil
}

func (l *Loop) tradeID() string {
	if l.config.TradePrefix == "" {
		return uuid.New().String()
	}
	return fmt.Sprintf("%s_%05d", l.config.TradePrefix, l.state.Trades+1)
}

// opportunity is the signal of the valid levels, measured against the entry threshold
// of a trade in the opposite direction.
func (l *Loop) opportunity(state model.MarketState, position model.Position) exit.Market {
	reason := model.NearResistance
	if position.Direction == model.Short {
		reason = model.NearSupport
	}
	market := exit.Market{
		Threshold: l.entry.Threshold(reason),
	}
	if score, ok := l.valid(state, state.BestSupport); ok {
		market.LongScore = score
	}
	if score, ok := l.valid(state, state.BestResistance); ok {
		market.ShortScore = score
	}
	return market
}

func (l *Loop) manage(state model.MarketState) error {
	position := l.state.Position
	favorable, adverse, watermark := position.MaxFavorable, position.MaxAdverse, l.state.Exit
	position.Track(state.Price)
	decision := l.exit.Evaluate(*position, l.opportunity(state, *position), state.Price, state.Time, &l.state.Exit)
	if decision == nil {
		// keep the excursions and the profit watermark across restarts
		if position.MaxFavorable != favorable || position.MaxAdverse != adverse || l.state.Exit != watermark {
			l.save()
		}
		return nil
	}
	log.Debug().
		Str("trade", position.TradeID).
		Str("reason", string(decision.Reason)).
		Strs("confirmations", decision.Confirmations).
		Msg("exit")
	_, err := l.close(state.Price, state.Time, decision.Reason)
	return err
}

// Open opens the position, unless there is one open already.
func (l *Loop) Open(position model.Position) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.open(position)
}

func (l *Loop) open(position model.Position) error {
	if l.state.Position != nil {
		return ErrPositionOpen
	}
	if position.Direction.Sign() == 0 || position.EntryPrice <= 0 {
		return fmt.Errorf("could not open invalid position: %s", position.String())
	}
	l.state.Position = &position
	l.state.Exit = exit.State{}
	l.state.Trades++
	l.save()

	l.notify(user.Opened(position))
	l.observer.Opened(position)
	log.Info().
		Str("pair", l.config.Pair).
		Str("position", position.String()).
		Float64("score", position.EntryScore).
		Msg("opened position")
	return nil
}

// Close closes the open position at the given price.
func (l *Loop) Close(price float64, now time.Time, reason model.ExitReason) (model.ClosedTrade, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.close(price, now, reason)
}

func (l *Loop) close(price float64, now time.Time, reason model.ExitReason) (model.ClosedTrade, error) {
	if l.state.Position == nil {
		return model.ClosedTrade{}, ErrNoPosition
	}
	position := *l.state.Position
	position.Track(price)
	pnl := position.PnLPercent(price)
	trade := model.ClosedTrade{
		Position:          position,
		ExitPrice:         price,
		ExitTime:          now,
		PnL:               position.Quantity * position.EntryPrice * pnl / 100,
		PnLPercent:        pnl,
		ExitReason:        reason,
		LevelWasEffective: l.effective(position, price),
	}
	l.state.Position = nil
	l.state.Exit = exit.State{}
	l.state.Cooldown = l.config.CooldownBars
	l.save()
	l.learn(trade)
	return trade, nil
}

// effective tells if the anchor level held until the exit.
func (l *Loop) effective(position model.Position, price float64) bool {
	switch position.Direction {
	case model.Long:
		return position.Support != nil && price > position.Support.Price*(1-l.config.EffectiveTolerance)
	case model.Short:
		return position.Resistance != nil && price < position.Resistance.Price*(1+l.config.EffectiveTolerance)
	}
	return false
}

// learn feeds the closed trade to the account and the learners.
func (l *Loop) learn(trade model.ClosedTrade) {
	if err := l.ledger.Append(trade); err != nil {
		log.Error().Err(err).Str("trade", trade.TradeID).Msg("could not append trade to ledger")
	}
	stats := l.tracker.Add(trade)
	l.risk.Update(trade.PnLPercent)
	l.leverage.RecordOutcome(trade.Leverage, trade.PnLPercent, trade.Win(), trade.HoldTime())
	if anchor := trade.Anchor(); anchor != nil {
		weights := l.finder.RecordTrade(*anchor, trade.LevelWasEffective, trade.PnLPercent)
		l.observer.Weights(weights)
	}
	l.entry.Record(trade.TradeID, learner.OutcomeOf(trade, nil))
	if l.config.AfterBars > 0 {
		l.after = append(l.after, pendingAfter{trade: trade, bars: l.config.AfterBars})
	} else {
		l.stopTarget.Record(trade.TradeID, learner.OutcomeOf(trade, nil))
	}

	balance, _ := l.tracker.Balance()
	l.notify(user.Closed(trade))
	l.observer.Closed(trade, balance)
	log.Info().
		Str("pair", l.config.Pair).
		Str("trade", trade.TradeID).
		Str("reason", string(trade.ExitReason)).
		Float64("pnl", trade.PnL).
		Float64("pnl%", trade.PnLPercent).
		Bool("effective", trade.LevelWasEffective).
		Float64("balance", balance).
		Float64("win-rate", stats.WinRate).
		Msg("closed position")
}

// settle records the trades whose after-exit window has passed.
func (l *Loop) settle(price float64) {
	remaining := l.after[:0]
	for _, a := range l.after {
		a.bars--
		if a.bars > 0 {
			remaining = append(remaining, a)
			continue
		}
		move := (price - a.trade.ExitPrice) / a.trade.ExitPrice * 100
		l.stopTarget.Record(a.trade.TradeID, learner.OutcomeOf(a.trade, &move))
	}
	l.after = remaining
}

// flush records the trades still waiting for their after-exit move without it.
func (l *Loop) flush() {
	for _, a := range l.after {
		l.stopTarget.Record(a.trade.TradeID, learner.OutcomeOf(a.trade, nil))
	}
	l.after = l.after[:0]
}

func (l *Loop) save() {
	if err := l.store.Store(l.key, l.state); err != nil {
		log.Warn().Err(err).Str("key", l.key.Path()).Msg("could not save loop state")
	}
}

func (l *Loop) notify(message *user.Message) {
	if err := l.notifier.Send(message); err != nil {
		log.Warn().Err(err).Msg("could not send notification")
	}
}
