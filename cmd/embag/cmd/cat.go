package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/embarktrucks/embag/bag"
	"github.com/spf13/cobra"
)

var catTopics []string

var catCmd = &cobra.Command{
	Use:   "cat <bag file>",
	Short: "Print messages from a bag file as newline-delimited JSON",
	Long: "Prints each message's topic, timestamp, and decoded value as one JSON " +
		"object per line. " + PleaseRedirect + " if the output is large.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			log.Fatal("expected exactly one bag file argument")
		}
		b, err := bag.Open(args[0])
		if err != nil {
			log.Fatal(err)
		}
		msgs, err := b.Messages(catTopics...)
		if err != nil {
			log.Fatal(err)
		}
		enc := json.NewEncoder(os.Stdout)
		for _, m := range msgs {
			val, err := m.Value()
			if err != nil {
				log.Fatal(err)
			}
			dict, err := val.Dict()
			if err != nil {
				log.Fatal(err)
			}
			if err := enc.Encode(map[string]any{
				"topic": m.Connection.Topic,
				"time":  m.Time.ToSec(),
				"value": dict,
			}); err != nil {
				log.Fatal(fmt.Errorf("encode message: %w", err))
			}
		}
	},
}

func init() {
	catCmd.Flags().StringSliceVarP(&catTopics, "topics", "t", nil, "restrict output to these topics (default: all)")
	rootCmd.AddCommand(catCmd)
}
