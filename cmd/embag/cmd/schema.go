package cmd

import (
	"fmt"
	"log"

	"github.com/embarktrucks/embag/bag"
	"github.com/embarktrucks/embag/rosmsg"
	"github.com/spf13/cobra"
)

func printSchema(node *rosmsg.Node, indent string) {
	switch node.Kind {
	case rosmsg.KindPrimitive:
		fmt.Println(string(node.Primitive))
	case rosmsg.KindArrayPrimitive, rosmsg.KindArrayObject:
		size := "[]"
		if node.FixedSize != rosmsg.VariableSize {
			size = fmt.Sprintf("[%d]", node.FixedSize)
		}
		fmt.Print(size)
		printSchema(node.Elem, indent)
	case rosmsg.KindObject:
		fmt.Printf("%s\n", node.TypeName)
		for _, f := range node.Fields {
			fmt.Printf("%s  %s ", indent, f.Name)
			printSchema(f.Schema, indent+"  ")
		}
	}
}

var schemaCmd = &cobra.Command{
	Use:   "schema <bag file> <topic>",
	Short: "Print the message-definition schema for a topic",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 2 {
			log.Fatal("expected a bag file and a topic argument")
		}
		b, err := bag.Open(args[0])
		if err != nil {
			log.Fatal(err)
		}
		tree, err := b.Schema(args[1])
		if err != nil {
			log.Fatal(err)
		}
		printSchema(tree.Root, "")
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
