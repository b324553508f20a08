package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sfdcale/cumulusci/config"
	"github.com/sfdcale/cumulusci/infrastructure/datagen"
)

//nolint:gochecknoglobals // Cobra flag bindings
var (
	dataRecipe           string
	dataVars             string
	dataNumRecords       int
	dataNumRecordsTable  string
	dataContinuation     string
	dataNextContinuation string
	dataWorkDir          string
	dataMappingFile      string
	dataDatabaseURL      string
)

//nolint:gochecknoglobals,exhaustruct // Cobra command definition
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Synthetic data tasks",
}

//nolint:gochecknoglobals,exhaustruct // Cobra command definition
var dataGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate synthetic records from a recipe",
	Long: `Run the external recipe engine against a recipe file. Continuation
files carry generation state across batches so repeated runs extend the
same dataset instead of restarting it.`,
	RunE: runDataGenerate,
}

//nolint:gochecknoinits // Cobra flag registration
func init() {
	dataGenerateCmd.Flags().StringVar(&dataRecipe, "recipe", "", "Path to the recipe file (required)")
	dataGenerateCmd.Flags().StringVar(&dataVars, "vars", "", "Recipe options as key:value pairs, comma separated")
	dataGenerateCmd.Flags().IntVar(&dataNumRecords, "num-records", 0, "Target record count for the tablename given with --num-records-tablename")
	dataGenerateCmd.Flags().StringVar(&dataNumRecordsTable, "num-records-tablename", "", "Table whose record count is the generation target")
	dataGenerateCmd.Flags().StringVar(&dataContinuation, "continuation-file", "", "Continuation file from a previous batch")
	dataGenerateCmd.Flags().StringVar(&dataNextContinuation, "generate-continuation-file", "", "Where to write the continuation file for the next batch")
	dataGenerateCmd.Flags().StringVar(&dataWorkDir, "working-directory", "", "Directory for continuation files between runs")
	dataGenerateCmd.Flags().StringVar(&dataMappingFile, "generate-mapping-file", "", "Where to write the generated load mapping file")
	dataGenerateCmd.Flags().StringVar(&dataDatabaseURL, "dburl", "", "Database URL to write generated records to")
	_ = dataGenerateCmd.MarkFlagRequired("recipe")

	dataCmd.AddCommand(dataGenerateCmd)
	rootCmd.AddCommand(dataCmd)
}

func runDataGenerate(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	app, err := injectAppContext()
	if err != nil {
		return err
	}

	vars := map[string]string{}
	if dataVars != "" {
		vars, err = config.ParsePairs(dataVars)
		if err != nil {
			return err
		}
	}

	task := datagen.NewTask(datagen.NewCLIExecutor(app.Config.Tasks.DataGeneration.Executable))
	return task.Run(ctx, datagen.Options{
		RecipePath:               dataRecipe,
		Vars:                     vars,
		NumRecords:               dataNumRecords,
		NumRecordsTablename:      dataNumRecordsTable,
		ContinuationFile:         dataContinuation,
		GenerateContinuationFile: dataNextContinuation,
		WorkingDirectory:         dataWorkDir,
		MappingFile:              dataMappingFile,
		DatabaseURL:              dataDatabaseURL,
	})
}
