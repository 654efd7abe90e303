package logger

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// GenerateNetworkRecap renders a compact top-maxEntry table per
// direction, thousands-separated via golang.org/x/text/message the way
// the original's GenerateNetworkRecap renders a fixed-width table —
// this is the Go-idiomatic, locale-aware replacement for that
// hand-rolled column formatter.
func (l *Logger) GenerateNetworkRecap(maxEntry int) string {
	l.recapMu.Lock()
	clientbound := snapshot(l.clientboundRecap)
	serverbound := snapshot(l.serverboundRecap)
	cTotal := l.clientboundTotal
	sTotal := l.serverboundTotal
	l.recapMu.Unlock()

	p := message.NewPrinter(language.English)
	var b strings.Builder
	b.WriteString("--- network recap ---\n")
	b.WriteString(renderRecapTable(p, "clientbound", clientbound, cTotal, maxEntry))
	b.WriteString(renderRecapTable(p, "serverbound", serverbound, sTotal, maxEntry))
	return b.String()
}

type recapRow struct {
	name string
	item RecapItem
}

func snapshot(m map[string]*RecapItem) []recapRow {
	rows := make([]recapRow, 0, len(m))
	for name, item := range m {
		rows = append(rows, recapRow{name: name, item: *item})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].item.BandwidthBytes > rows[j].item.BandwidthBytes })
	return rows
}

func renderRecapTable(p *message.Printer, label string, rows []recapRow, total RecapItem, maxEntry int) string {
	var b strings.Builder
	b.WriteString(p.Sprintf("%s: %d packets, %d bytes\n", label, total.Count, total.BandwidthBytes))
	n := len(rows)
	if maxEntry >= 0 && maxEntry < n {
		n = maxEntry
	}
	for i := 0; i < n; i++ {
		r := rows[i]
		b.WriteString(p.Sprintf("  %-40s %10d pkts %14d bytes\n", r.name, r.item.Count, r.item.BandwidthBytes))
	}
	if len(rows) > n {
		fmt.Fprintf(&b, "  ... %d more\n", len(rows)-n)
	}
	return b.String()
}
