package main

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	rest "github.com/xompass/vsaas-joins"
	"github.com/xompass/vsaas-joins/database"
	"github.com/xompass/vsaas-joins/lbq"
)

var (
	followModel  string
	followID     string
	followJoin   string
	followFilter string
	followLimit  uint
)

var followCmd = &cobra.Command{
	Use:   "follow",
	Short: "Follow a join of one document",
	Long:  `Load the document of --model whose _id is --id and print what its join --join resolves to, as JSON.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var scope *database.FilterBuilder
		if followFilter != "" {
			filter, err := lbq.ParseFilter(followFilter)
			if err != nil {
				fatal("Invalid filter", err)
			}
			scope = database.NewFilter().FromLBFilter(filter)
		}

		ctx := context.Background()
		rt, err := openRuntime(ctx)
		if err != nil {
			fatal("Error opening datasource", err)
		}
		defer rt.Close(ctx)

		app := rest.NewRestApp(rest.RestAppOptions{
			Name:         "vsaas-joins",
			Datasource:   rt.datasource,
			Catalog:      rt.catalog,
			LogLevel:     logger.Level,
			MaxJoinLimit: followLimit,
		})

		response, err := app.FollowJoin(ctx, followModel, followID, followJoin, scope)
		if err != nil {
			fatal("Error following join", err)
		}

		data, err := sonic.ConfigStd.MarshalIndent(response, "", "  ")
		if err != nil {
			fatal("Error encoding JSON", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	},
}

func init() {
	rootCmd.AddCommand(followCmd)
	followCmd.Flags().StringVar(&followModel, "model", "", "Model of the source document")
	followCmd.Flags().StringVar(&followID, "id", "", "_id of the source document")
	followCmd.Flags().StringVar(&followJoin, "join", "", "Path of the join to follow")
	followCmd.Flags().StringVar(&followFilter, "filter", "", "Loopback filter applied to the target query")
	followCmd.Flags().UintVar(&followLimit, "limit", rest.DefaultMaxJoinLimit, "Maximum documents returned by a multiple join")
	_ = followCmd.MarkFlagRequired("model")
	_ = followCmd.MarkFlagRequired("id")
	_ = followCmd.MarkFlagRequired("join")
}
