package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/embarktrucks/embag/bag"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func printInfo(w io.Writer, b *bag.Bag) error {
	buf := &bytes.Buffer{}

	conns := b.Connections()
	stats := b.Statistics()
	fmt.Fprintf(buf, "connections: %d\n", len(conns))
	fmt.Fprintf(buf, "messages: %d\n", stats.MessageCount)
	fmt.Fprintf(buf, "duration: %s to %s\n", stats.StartTime, stats.EndTime)
	for _, compression := range []string{"none", "bz2", "lz4"} {
		if n := stats.ChunkCountByCompression[compression]; n > 0 {
			fmt.Fprintf(buf, "chunks (%s): %d\n", compression, n)
		}
	}

	topics := b.Topics()
	sort.Strings(topics)
	fmt.Fprintf(buf, "topics:\n")

	rows := [][]string{}
	for _, topic := range topics {
		for _, c := range b.ConnectionsForTopic(topic) {
			rows = append(rows, []string{
				fmt.Sprintf("\t%s", topic),
				fmt.Sprintf("%d msgs", c.MessageCount),
				fmt.Sprintf(": %s", c.Type),
			})
		}
	}
	tw := tablewriter.NewWriter(buf)
	tw.SetBorder(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetColumnSeparator("")
	tw.AppendBulk(rows)
	tw.Render()

	_, err := buf.WriteTo(w)
	return err
}

var infoCmd = &cobra.Command{
	Use:   "info <bag file>",
	Short: "Report topics, connections, and message counts for a bag file",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			die("expected exactly one bag file argument")
		}
		b, err := bag.Open(args[0])
		if err != nil {
			die("%s", err)
		}
		defer b.Close()
		if err := printInfo(os.Stdout, b); err != nil {
			die("%s", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
