// Command simulate drives the engine through a scripted command sequence
// in-process — the external API shell, CLI entry point, and configuration
// loader are all out of spec.md §1's scope, so this is the scripted driver
// that exercises the command surface (spec.md §6) the way the teacher's
// cmd/server wired a TCP listener to its own engine.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"fenrir/internal/book"
	"fenrir/internal/decimalx"
	"fenrir/internal/engine"
	"fenrir/internal/market"
)

const btcPerp = decimalx.MarketId("BTC-PERP")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	eng := engine.New()
	eng.AddMarket(btcPerp, market.DefaultParams())

	mailbox := engine.NewMailbox(eng)
	done := make(chan error, 1)
	go func() { done <- mailbox.Run(ctx) }()

	runScenario(mailbox)

	if err := mailbox.Stop(); err != nil {
		log.Error().Err(err).Msg("mailbox stop returned an error")
	}
	if err := <-done; err != nil {
		log.Error().Err(err).Msg("mailbox run exited with an error")
	}
}

// runScenario walks the opening half of spec.md §8 scenario 1: deposit,
// open a 10x long against a 10x short, mark the position up via an oracle
// tick, then send a bare tick. The positions are left open; nothing here
// closes them.
func runScenario(mailbox *engine.Mailbox) {
	alice := decimalx.AccountId("alice")
	var now decimalx.Timestamp = 1_700_000_000_000

	bob := decimalx.AccountId("bob")

	submit(mailbox, engine.OracleTick(btcPerp, decimalx.PriceFromInt(50_000), now))
	submit(mailbox, engine.Deposit(alice, decimalx.QuoteFromInt(10_000)))
	submit(mailbox, engine.Deposit(bob, decimalx.QuoteFromInt(10_000)))

	now += 1_000
	submit(mailbox, engine.PlaceOrder(engine.OrderSpec{
		ID:         decimalx.OrderId("order-1"),
		AccountID:  alice,
		MarketID:   btcPerp,
		Side:       decimalx.Buy,
		Kind:       book.Limit,
		Size:       decimalx.SizeFromInt(1),
		LimitPrice: decimalx.PriceFromInt(50_000),
		Leverage:   decimalx.NewLeverageInt(10),
		CreatedAt:  now,
	}))
	submit(mailbox, engine.PlaceOrder(engine.OrderSpec{
		ID:        decimalx.OrderId("order-2"),
		AccountID: bob,
		MarketID:  btcPerp,
		Side:      decimalx.Sell,
		Kind:      book.Market,
		Size:      decimalx.SizeFromInt(1),
		Leverage:  decimalx.NewLeverageInt(10),
		CreatedAt: now,
	}))

	now += 60_000
	submit(mailbox, engine.OracleTick(btcPerp, decimalx.PriceFromInt(55_000), now))

	now += 60_000
	submit(mailbox, engine.Tick(now))
}

func submit(mailbox *engine.Mailbox, cmd engine.Command) {
	events, err := mailbox.Submit(cmd)
	if err != nil {
		log.Warn().Err(err).Msg("command rejected")
	}
	for _, ev := range events {
		log.Info().
			Uint64("epoch", ev.Epoch).
			Uint64("seq", ev.Seq).
			Stringer("kind", ev.Kind).
			Interface("payload", ev.Payload).
			Msg("event")
	}
}
