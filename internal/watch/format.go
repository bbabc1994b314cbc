package watch

import (
	"fmt"

	"solana-transfer-watch/internal/classify"
)

// FormatAlert renders a matched transfer as a Telegram HTML message with
// a solscan signature link.
func FormatAlert(ev *classify.TransferEvent) string {
	return fmt.Sprintf(
		"🔔 <b>Outgoing transfer detected</b>\n\n"+
			"Amount: <b>%.9g SOL</b>\n"+
			"From: <code>%s</code>\n"+
			"To: <code>%s</code>\n\n"+
			"<a href=\"https://solscan.io/tx/%s\">View on Solscan</a>",
		ev.AmountSOL(), ev.From, ev.To, ev.Signature,
	)
}

// FormatLookupFailure renders a best-effort operator alert for a failed
// transaction lookup.
func FormatLookupFailure(signature string, err error) string {
	return fmt.Sprintf(
		"⚠️ Could not inspect transaction <code>%s</code>: %v",
		signature, err,
	)
}

// FormatTerminal renders the single alert emitted when reconnect attempts
// are exhausted.
func FormatTerminal(attempts int) string {
	return fmt.Sprintf(
		"🛑 Stream connection lost after %d reconnect attempts. "+
			"The watcher is idle until restarted.",
		attempts,
	)
}
