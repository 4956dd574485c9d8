// cmd/client/cmd/init.go
package cmd

import (
	"liftkeeper/cmd/client/cmd/catalog"
	"liftkeeper/cmd/client/cmd/queue"
	"liftkeeper/cmd/client/cmd/visits"
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)

	// очередь офлайн-изменений
	rootCmd.AddCommand(queue.QueueCmd)
	queue.QueueCmd.AddCommand(queue.ListCmd)
	queue.QueueCmd.AddCommand(queue.ReplayCmd)

	rootCmd.AddCommand(catalog.CatalogCmd)
	rootCmd.AddCommand(visits.VisitsCmd)
}
