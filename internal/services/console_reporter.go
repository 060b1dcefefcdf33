package services

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/irfndi/arbscan/internal/models"
)

// ConsoleReporter prints each cycle's ranked opportunities as a table.
type ConsoleReporter struct {
	out    io.Writer
	minNet float64
}

func NewConsoleReporter(out io.Writer, minNetSpreadPct float64) *ConsoleReporter {
	return &ConsoleReporter{out: out, minNet: minNetSpreadPct}
}

func (r *ConsoleReporter) Report(now time.Time, hits []models.Hit) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "\n--- %s ---\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w, "PAIR\tBUY\tSELL\tAsk\tBid\tGross%\tNet%\tBuyVol24h\tSellVol24h")
	for _, h := range hits {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.8g\t%.8g\t%.3g\t%.3g\t%.0f\t%.0f\n",
			h.Pair, h.Buy, h.Sell, h.BuyAsk, h.SellBid, h.GrossPct, h.NetPct, h.BuyVol, h.SellVol)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(hits) == 0 {
		_, err := fmt.Fprintf(r.out, "(no durable opportunities >= %g%% net)\n", r.minNet)
		return err
	}
	return nil
}
