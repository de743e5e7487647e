package main

import (
	"fmt"

	"github.com/atinyakov/GridCaptcha/internal/client"
	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Print a fresh session token",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), client.NewSessionToken())
		},
	}
}

func newValidateCmd(conn *connFlags) *cobra.Command {
	var tok, session string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a verification token as a relying party",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := conn.client()
			if err != nil {
				return err
			}
			res, err := c.Validate(cmd.Context(), tok, session)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Valid {
				return fmt.Errorf("token rejected: %s", res.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tok, "token", "", "verification token")
	cmd.Flags().StringVar(&session, "session", "", "session token the captcha was solved under")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newVerifyCmd(conn *connFlags) *cobra.Command {
	var (
		id      int64
		cells   []int
		session string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Submit a cell selection for a captcha",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if session == "" {
				session = client.NewSessionToken()
				fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", session)
			}
			c, err := conn.client()
			if err != nil {
				return err
			}
			res, err := c.Verify(cmd.Context(), id, cells, session)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "captcha id")
	cmd.Flags().IntSliceVar(&cells, "cells", nil, "selected cell indices, e.g. 0,4,8")
	cmd.Flags().StringVar(&session, "session", "", "session token (default: a fresh one)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("cells")
	return cmd
}
