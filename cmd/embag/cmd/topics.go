package cmd

import (
	"fmt"
	"log"
	"sort"

	"github.com/embarktrucks/embag/bag"
	"github.com/spf13/cobra"
)

var topicsCmd = &cobra.Command{
	Use:   "topics <bag file>",
	Short: "List the topics recorded in a bag file",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			log.Fatal("expected exactly one bag file argument")
		}
		b, err := bag.Open(args[0])
		if err != nil {
			log.Fatal(err)
		}
		topics := b.Topics()
		sort.Strings(topics)
		for _, t := range topics {
			fmt.Println(t)
		}
	},
}

func init() {
	rootCmd.AddCommand(topicsCmd)
}
