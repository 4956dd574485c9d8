// cmd/client/cmd/catalog/catalog.go
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"liftkeeper/internal/app/client"
	"liftkeeper/internal/domain/checklist"
)

var (
	month     int
	hydraulic bool
)

var CatalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Вопросы чек-листа на месяц",
	Long: `Показывает вопросы планового обслуживания, которые применяются
в указанном месяце, сгруппированные по разделам. Вопросы только для
гидравлических лифтов выводятся с флагом --hydraulic.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		if month < 1 || month > 12 {
			return fmt.Errorf("месяц должен быть от 1 до 12, получено %d", month)
		}

		questions, err := checklist.LoadCatalog(cmd.Context(), app.Gateway())
		if err != nil {
			return fmt.Errorf("ошибка загрузки каталога: %w", err)
		}
		sections := checklist.GroupBySection(checklist.Filter(questions, month, hydraulic))

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sections)
		}

		if len(sections) == 0 {
			fmt.Println("Вопросы не найдены")
			return nil
		}
		for _, s := range sections {
			fmt.Printf("%s\n", s.Name)
			for _, q := range s.Questions {
				fmt.Printf("  %2d. %s (%s)\n", q.SequenceNumber, q.Text, q.Frequency)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	CatalogCmd.Flags().IntVar(&month, "month", int(time.Now().Month()), "месяц обслуживания (1-12)")
	CatalogCmd.Flags().BoolVar(&hydraulic, "hydraulic", false, "гидравлический лифт")
}
