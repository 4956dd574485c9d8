// cmd/client/cmd/visits/visits.go
package visits

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"liftkeeper/internal/app/client"
	"liftkeeper/internal/domain/checklist"
	"liftkeeper/internal/domain/emergency"
)

var technicianID string

type inProgress struct {
	Checklists []checklist.SessionRecord `json:"checklists"`
	Emergency  []emergency.Visit         `json:"emergency_visits"`
}

var VisitsCmd = &cobra.Command{
	Use:   "visits",
	Short: "Незавершенные обслуживания и аварийные выезды",
	Long: `Показывает начатые, но не завершенные чек-листы и аварийные выезды
техника, чтобы продолжить их с того места, где работа остановилась.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}

		tech := technicianID
		if tech == "" {
			tech = app.Config().TechnicianID
		}
		if tech == "" {
			return fmt.Errorf("не указан техник: --technician или TECHNICIAN_ID")
		}

		var res inProgress
		if res.Checklists, err = app.Checklist().InProgress(cmd.Context(), tech); err != nil {
			return fmt.Errorf("ошибка получения чек-листов: %w", err)
		}
		if res.Emergency, err = app.Emergency().InProgress(cmd.Context(), tech); err != nil {
			return fmt.Errorf("ошибка получения аварийных выездов: %w", err)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		return printTable(res)
	},
}

func printTable(res inProgress) error {
	if len(res.Checklists) == 0 && len(res.Emergency) == 0 {
		fmt.Println("Незавершенных работ нет")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ТИП\tID\tОБЪЕКТ\tПРОГРЕСС\tСОХРАНЕНО")
	for _, s := range res.Checklists {
		fmt.Fprintf(w, "чек-лист\t%s\t%s\t%02d/%d\t%s\n",
			s.ID, s.ElevatorID, s.Month, s.Year, savedAt(s.LastSavedAt, s.CreatedAt))
	}
	for _, v := range res.Emergency {
		fmt.Fprintf(w, "авария\t%s\t%s\t%d из %d\t%s\n",
			v.ID, v.BuildingName, v.CurrentIndex, len(v.ElevatorIDs), savedAt(v.LastSavedAt, v.StartedAt))
	}
	return w.Flush()
}

func savedAt(last *time.Time, fallback time.Time) string {
	if last != nil {
		return last.Local().Format(time.DateTime)
	}
	return fallback.Local().Format(time.DateTime)
}

func init() {
	VisitsCmd.Flags().StringVar(&technicianID, "technician", "", "идентификатор техника (по умолчанию TECHNICIAN_ID)")
}
