package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/jinford/health-rag/internal/module/search/application"
	"github.com/jinford/health-rag/internal/module/search/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/mo"
	"github.com/urfave/cli/v3"
)

// SearchAction は種別横断のセマンティック検索を実行するコマンドのアクション
func SearchAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	query := cmd.String("query")
	patientStr := cmd.String("patient")
	kindStr := cmd.String("kind")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	patientID, err := parseOptionalUUID(patientStr, "--patient")
	if err != nil {
		return err
	}

	params := application.SearchAllParams{
		Query:     query,
		PatientID: patientID,
	}
	if kindStr != "" {
		params.Kind = mo.Some(domain.EntityKind(kindStr))
	}
	if cmd.IsSet("threshold") {
		params.Threshold = mo.Some(cmd.Float("threshold"))
	}
	if cmd.IsSet("limit") {
		params.Limit = mo.Some(int(cmd.Int("limit")))
	}

	results, err := appCtx.Container.SearchEngine.SearchAll(ctx, params)
	if err != nil {
		return fmt.Errorf("検索に失敗: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("該当するレコードはありません")
		return nil
	}

	renderSearchResults(results)
	return nil
}

func renderSearchResults(results []*domain.SearchResult) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Kind", "Similarity", "Content")

	for _, res := range results {
		table.Append(
			res.EntityID.String(),
			string(res.EntityKind),
			fmt.Sprintf("%.3f", res.Similarity),
			truncateString(res.Content, 60),
		)
	}

	table.Render()
}
