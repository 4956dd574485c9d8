// cmd/client/cmd/queue/queue.go
package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	offline "liftkeeper/internal/domain/queue"
)

var QueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Очередь изменений, сделанных без связи",
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printItemsTable(items []offline.Item) error {
	if len(items) == 0 {
		fmt.Println("Очередь пуста")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tДЕЙСТВИЕ\tТАБЛИЦА\tПОПЫТКИ\tСОЗДАНО\tОШИБКА")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			it.ID,
			it.Action,
			it.Target,
			it.Attempts,
			it.CreatedAt.Local().Format(time.DateTime),
			truncate(it.LastError, 60),
		)
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
