// cmd/client/cmd/run.go
package cmd

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Фоновый режим: проверка связи и отправка очереди",
	Long: `Держит клиент запущенным: по расписанию проверяет связь с сервером
и отправляет накопленные изменения, как только связь появляется.
Останавливается по Ctrl+C или SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(cmd.Context())
	},
}
