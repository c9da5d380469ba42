package cli

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rahulmohamw/SSM-Silver-scraper-V0/models"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/store"
)

var showTail int

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the most recent dataset rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadApp()
		if err != nil {
			return err
		}

		st := store.NewCSVStore(cfg.Store, logger)
		path := st.Path(models.PriceRecord{ScrapeTime: time.Now()})

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open dataset %s: %w", path, err)
		}
		defer f.Close()

		r := csv.NewReader(f)
		rows, err := r.ReadAll()
		if err != nil {
			return fmt.Errorf("read dataset %s: %w", path, err)
		}
		if len(rows) <= 1 {
			fmt.Println("dataset is empty")
			return nil
		}

		header, data := rows[0], rows[1:]
		if showTail > 0 && len(data) > showTail {
			data = data[len(data)-showTail:]
		}

		w := csv.NewWriter(os.Stdout)
		if err := w.Write(header); err != nil {
			return err
		}
		if err := w.WriteAll(data); err != nil {
			return err
		}
		w.Flush()
		return w.Error()
	},
}

func init() {
	showCmd.Flags().IntVar(&showTail, "tail", 10, "Number of trailing rows to print (0 for all)")
}
