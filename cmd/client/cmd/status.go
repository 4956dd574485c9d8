// cmd/client/cmd/status.go
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Состояние связи и очереди",
	Long: `Проверяет доступность сервера и показывает, сколько изменений
ждут отправки и сколько из них отложены после исчерпания попыток.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Prepare(cmd.Context()); err != nil {
			return err
		}

		st := app.Status()
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}

		connection := "нет связи"
		if st.Online {
			connection = "онлайн"
		}
		fmt.Printf("Сервер:        %s (%s)\n", st.Server, connection)
		fmt.Printf("В очереди:     %d\n", st.Pending)
		fmt.Printf("Отложено:      %d\n", st.DeadLetters)
		if st.DeadLetters > 0 {
			fmt.Println()
			fmt.Println("Отложенные изменения: liftkeeper queue list --dead")
		}
		return nil
	},
}
