// cmd/client/cmd/queue/list.go
package queue

import (
	"github.com/spf13/cobra"

	"liftkeeper/internal/app/client"
)

var showDead bool

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Изменения, ожидающие отправки",
	Long: `Показывает изменения в порядке их создания. С флагом --dead
выводятся изменения, отложенные после исчерпания попыток отправки.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		if err := app.Prepare(cmd.Context()); err != nil {
			return err
		}

		items := app.Queue().Pending()
		if showDead {
			items = app.Queue().DeadLetters()
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(items)
		}
		return printItemsTable(items)
	},
}

func init() {
	ListCmd.Flags().BoolVar(&showDead, "dead", false, "показать отложенные изменения")
}
