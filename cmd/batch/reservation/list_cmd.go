package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/uma-arai/sbcntr-booking/internal/common/config"
	"github.com/uma-arai/sbcntr-booking/internal/common/database"
	"github.com/uma-arai/sbcntr-booking/internal/common/utils"
	"github.com/uma-arai/sbcntr-booking/internal/model"
	"github.com/uma-arai/sbcntr-booking/internal/repository"
)

func newListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "指定ステータスの予約をJSONで出力します (BOOKING_BACKEND=db)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := model.ReservationStatus(status)
			if !st.Valid() {
				return fmt.Errorf("invalid --status %q", status)
			}

			cfg, err := config.LoadConfig("")
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Backend != config.BackendDB {
				return fmt.Errorf("list requires BOOKING_BACKEND=%s", config.BackendDB)
			}

			log := logrus.NewEntry(utils.NewLogger(cfg.LogLevel, os.Stderr))

			db, err := database.NewDB(cfg.DB)
			if err != nil {
				return fmt.Errorf("failed to create database connection: %w", err)
			}
			defer db.Close()

			repo := repository.NewReservationRepository(repository.NewDB(db.DB, log), cfg.Location())
			reservations, err := repo.GetReservationsByStatus(cmd.Context(), st)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), reservations)
		},
	}

	cmd.Flags().StringVar(&status, "status", string(model.ReservationStatusPending), "予約ステータス (PENDING, CONFIRMED, CANCELLED)")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
