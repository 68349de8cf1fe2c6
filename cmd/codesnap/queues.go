package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"codesnap/internal/storage"
)

var (
	queueSetTargetType string
)

var queuesCmd = &cobra.Command{
	Use:   "queues",
	Short: "Manage queue-name mappings",
	Long: `Manage the stored mappings from queue names to the async functions and
topics they serve. The store-backed queue resolver reads these mappings at
build time.`,
}

var queuesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all queue mappings",
	Run:   runQueuesList,
}

var queuesSetCmd = &cobra.Command{
	Use:   "set <queue-name> <target-name>",
	Short: "Create or replace a queue mapping",
	Args:  cobra.ExactArgs(2),
	Run:   runQueuesSet,
}

var queuesRemoveCmd = &cobra.Command{
	Use:   "rm <queue-name>",
	Short: "Remove a queue mapping",
	Args:  cobra.ExactArgs(1),
	Run:   runQueuesRemove,
}

func init() {
	queuesSetCmd.Flags().StringVar(&queueSetTargetType, "type", storage.TargetTypeFunction,
		"Target type (FUNCTION or TOPIC)")
	queuesCmd.AddCommand(queuesListCmd)
	queuesCmd.AddCommand(queuesSetCmd)
	queuesCmd.AddCommand(queuesRemoveCmd)
	rootCmd.AddCommand(queuesCmd)
}

func runQueuesList(cmd *cobra.Command, args []string) {
	e, err := openEnv()
	if err != nil {
		fatal("Error: %v", err)
	}
	defer e.Close()

	mappings, err := e.queues.List()
	if err != nil {
		fatal("Error listing queue mappings: %v", err)
	}

	if len(mappings) == 0 {
		fmt.Println("No queue mappings stored")
		return
	}
	for _, m := range mappings {
		fmt.Printf("%s\t%s\t%s\n", m.QueueName, m.TargetType, m.TargetName)
	}
}

func runQueuesSet(cmd *cobra.Command, args []string) {
	e, err := openEnv()
	if err != nil {
		fatal("Error: %v", err)
	}
	defer e.Close()

	targetType := strings.ToUpper(queueSetTargetType)
	if err := e.queues.Upsert(args[0], targetType, args[1]); err != nil {
		fatal("Error storing queue mapping: %v", err)
	}
	fmt.Printf("Mapped queue %s to %s %s\n", args[0], strings.ToLower(targetType), args[1])
}

func runQueuesRemove(cmd *cobra.Command, args []string) {
	e, err := openEnv()
	if err != nil {
		fatal("Error: %v", err)
	}
	defer e.Close()

	deleted, err := e.queues.Delete(args[0])
	if err != nil {
		fatal("Error removing queue mapping: %v", err)
	}
	if !deleted {
		fmt.Printf("No mapping for queue %s\n", args[0])
		return
	}
	fmt.Printf("Removed mapping for queue %s\n", args[0])
}
