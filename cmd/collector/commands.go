package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/riskibarqy/halo-stats/internal/app"
	"github.com/riskibarqy/halo-stats/internal/usecase"
)

func runAuth(ctx context.Context, c *app.Collector, code string, codes usecase.CodeProvider, stdout io.Writer) error {
	if code == "" {
		var err error
		code, err = codes.AuthorizationCode(ctx, c.TokenChain.AuthorizationURL())
		if err != nil {
			return err
		}
	}
	token, err := c.TokenChain.Bootstrap(ctx, code)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "credentials stored, spartan token valid until %s\n", token.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

// runToken reads the stored bundle without refreshing it.
func runToken(ctx context.Context, c *app.Collector, stdout io.Writer) error {
	remaining, err := c.TokenChain.Remaining(ctx)
	if err != nil {
		return err
	}
	if remaining <= 0 {
		fmt.Fprintln(stdout, "spartan token expired or missing, the next job refreshes it")
		return nil
	}
	fmt.Fprintf(stdout, "spartan token valid for %s\n", remaining.Round(time.Second))
	return nil
}

func runMatch(ctx context.Context, c *app.Collector, xuid string, stdout io.Writer) error {
	result, err := c.MatchJob.Run(ctx, xuid)
	printMatchResult(stdout, result)
	return err
}

func runNext(ctx context.Context, c *app.Collector, stdout io.Writer) error {
	result, err := c.Coverage.RunNextPlayer(ctx)
	if errors.Is(err, usecase.ErrNoPlayerQueued) {
		fmt.Fprintln(stdout, "no players in the directory, run match -xuid first")
		return nil
	}
	printMatchResult(stdout, result)
	return err
}

func runMetadata(ctx context.Context, c *app.Collector, stdout io.Writer) error {
	result, err := c.Metadata.Run(ctx)
	fmt.Fprintf(stdout, "job %d: maps=%d modes=%d playlists=%d conflicts=%d gamertags=%d profile_failures=%d\n",
		result.JobID, result.MapsUpdated, result.ModesUpdated, result.PlaylistsUpdated,
		len(result.Conflicts), result.GamertagsSet, result.ProfileFailures)
	return err
}

func runDetail(ctx context.Context, c *app.Collector, limit int, stdout io.Writer) error {
	if limit <= 0 {
		limit = c.DetailBatchLimit
	}
	result, err := c.Detail.Run(ctx, limit)
	fmt.Fprintf(stdout, "job %d: pending=%d saved=%d\n", result.JobID, result.Pending, result.Saved)
	return err
}

func printMatchResult(w io.Writer, r usecase.MatchJobResult) {
	if r.JobID == 0 {
		return
	}
	fmt.Fprintf(w, "job %d: player=%d expected_new=%d pages=%d stored=%d elapsed=%s\n",
		r.JobID, r.PlayerID, r.ExpectedNew, r.PagesFetched, r.MatchesStored, r.Duration.Round(time.Millisecond))
}
