package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var (
	dexCommand = cli.Command{
		Name:  "dex",
		Usage: "Announce and discover orders on nostr relays",
		Subcommands: []*cli.Command{
			&listOrdersCommand,
			&getOrderCommand,
			&getEventCommand,
			&replyCommand,
			&repliesCommand,
			&watchCommand,
		},
	}

	listOrdersCommand = cli.Command{
		Name:   "list-orders",
		Usage:  "List the active maker orders",
		Action: listOrdersAction,
	}
	getOrderCommand = cli.Command{
		Name:   "get-order",
		Usage:  "Show a maker order",
		Action: getOrderAction,
		Flags:  []cli.Flag{&eventIDFlag},
	}
	getEventCommand = cli.Command{
		Name:   "get-event",
		Usage:  "Show the raw event with the given id",
		Action: getEventAction,
		Flags:  []cli.Flag{&eventIDFlag},
	}
	replyCommand = cli.Command{
		Name:   "reply",
		Usage:  "Reply to a maker order with the id of the taker funding tx",
		Action: replyAction,
		Flags:  []cli.Flag{&eventIDFlag, &makerPubkeyFlag, &txidFlag},
	}
	repliesCommand = cli.Command{
		Name:   "replies",
		Usage:  "List the taker replies to a maker order",
		Action: repliesAction,
		Flags:  []cli.Flag{&eventIDFlag},
	}
	watchCommand = cli.Command{
		Name:   "watch",
		Usage:  "Print the active orders periodically until interrupted",
		Action: watchAction,
		Flags:  []cli.Flag{&intervalFlag},
	}
)

func listOrdersAction(ctx *cli.Context) error {
	svc, err := cfg.OrderBookService(ctx.Context)
	if err != nil {
		return err
	}
	orders, err := svc.ListActive(ctx.Context)
	if err != nil {
		return err
	}
	printOrders(orders)
	return nil
}

func getOrderAction(ctx *cli.Context) error {
	svc, err := cfg.OrderBookService(ctx.Context)
	if err != nil {
		return err
	}
	order, err := svc.GetOrder(ctx.Context, ctx.String(eventIDFlag.Name))
	if err != nil {
		return err
	}
	paramsHex, err := order.Params.EncodeToHex()
	if err != nil {
		return err
	}

	return printJSON(struct {
		domain.OrderSummary
		MakerPubkey string `json:"maker_pubkey"`
		ContractKey string `json:"contract_key"`
		Params      string `json:"params"`
	}{
		OrderSummary: domain.NewOrderSummary(*order),
		MakerPubkey:  order.MakerPubkey,
		ContractKey:  order.ContractKey.String(),
		Params:       paramsHex,
	})
}

func getEventAction(ctx *cli.Context) error {
	svc, err := cfg.OrderBookService(ctx.Context)
	if err != nil {
		return err
	}
	ev, err := svc.GetEvent(ctx.Context, ctx.String(eventIDFlag.Name))
	if err != nil {
		return err
	}
	return printJSON(ev)
}

func replyAction(ctx *cli.Context) error {
	svc, err := cfg.OrderBookService(ctx.Context)
	if err != nil {
		return err
	}
	id, err := svc.ReplyOrder(
		ctx.Context, ctx.String(eventIDFlag.Name),
		ctx.String(makerPubkeyFlag.Name), ctx.String(txidFlag.Name),
	)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"event_id": id})
}

func repliesAction(ctx *cli.Context) error {
	svc, err := cfg.OrderBookService(ctx.Context)
	if err != nil {
		return err
	}
	replies, err := svc.ListReplies(ctx.Context, ctx.String(eventIDFlag.Name))
	if err != nil {
		return err
	}
	if len(replies) == 0 {
		fmt.Println("no results")
		return nil
	}
	return printJSON(replies)
}

func watchAction(ctx *cli.Context) error {
	svc, err := cfg.OrderBookService(ctx.Context)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return svc.Watch(sigCtx, ctx.Duration(intervalFlag.Name), printOrders)
}

func printOrders(orders []domain.OrderSummary) {
	if len(orders) == 0 {
		fmt.Println("no results")
		return
	}
	for _, o := range orders {
		fmt.Println(o.String())
		fmt.Println()
	}
}

