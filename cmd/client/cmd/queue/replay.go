// cmd/client/cmd/queue/replay.go
package queue

import (
	"fmt"

	"github.com/spf13/cobra"

	"liftkeeper/internal/app/client"
)

var ReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Отправить очередь на сервер",
	Long: `Отправляет накопленные изменения по порядку. Неудачные изменения
остаются в очереди и будут отправлены при следующем проходе.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		if err := app.Prepare(cmd.Context()); err != nil {
			return err
		}

		if !app.Monitor().Online() {
			return fmt.Errorf("нет связи с сервером %s, изменения остаются в очереди", app.Config().BaseURL())
		}

		result, err := app.Queue().Replay(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка отправки очереди: %w", err)
		}
		purged, err := app.PurgeSynced(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка очистки очереди: %w", err)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(result)
		}

		fmt.Printf("Отправлено: %d из %d\n", result.Synced, result.Attempted)
		if result.Failed > 0 {
			fmt.Printf("С ошибкой:  %d\n", result.Failed)
		}
		if result.DeadLettered > 0 {
			fmt.Printf("Отложено:   %d\n", result.DeadLettered)
		}
		for _, e := range result.Errors {
			fmt.Printf("  %s %s %s: %s\n", e.ItemID, e.Action, e.Target, e.Error)
		}
		if purged > 0 {
			fmt.Printf("Удалено отправленных старше %s: %d\n", app.Config().QueueRetention, purged)
		}
		fmt.Printf("Осталось в очереди: %d\n", app.Queue().Len())
		return nil
	},
}
