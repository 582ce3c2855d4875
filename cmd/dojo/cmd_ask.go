package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/felixgeelhaar/codedojo/internal/catalog"
	"github.com/felixgeelhaar/codedojo/internal/tutor"
)

func cmdAsk(c *client, args []string) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	questionID := fs.Int64("question", 0, "catalog question to use as context")
	title := fs.String("title", "", "problem title")
	problem := fs.String("problem", "", "problem statement")
	file := fs.String("file", "", "file with your current code")
	language := fs.String("language", "", "language of your code")
	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}

	query := strings.TrimSpace(strings.Join(positional, " "))
	if query == "" {
		return fmt.Errorf("usage: dojo ask [--question id] [--file f] <question...>")
	}

	tc := &tutor.Context{
		Title:    *title,
		Problem:  *problem,
		Language: *language,
	}

	if *questionID > 0 {
		var q catalog.Question
		if err := c.get(fmt.Sprintf("/v1/questions/%d", *questionID), nil, &q); err != nil {
			return err
		}
		if tc.Title == "" {
			tc.Title = q.Title
		}
		if tc.Problem == "" {
			tc.Problem = q.ProblemStatement
		}
	}

	if *file != "" {
		code, err := os.ReadFile(*file)
		if err != nil {
			return fmt.Errorf("read code: %w", err)
		}
		tc.UserCode = string(code)
		if tc.Language == "" {
			tc.Language = languageFromPath(*file)
		}
	}

	var resp tutor.Response
	if err := c.post("/v1/tutor", tutor.Request{Query: query, Context: tc}, &resp); err != nil {
		return err
	}

	fmt.Println(resp.Answer)
	return nil
}
