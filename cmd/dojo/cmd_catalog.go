package main

import (
	"flag"
	"fmt"
	"net/url"
	"strconv"

	"github.com/felixgeelhaar/codedojo/internal/catalog"
)

func cmdStatus(c *client) error {
	var status struct {
		Status      string `json:"status"`
		Version     string `json:"version"`
		Credentials int    `json:"credentials"`
		Events      bool   `json:"events"`
		Catalog     struct {
			Driver string `json:"driver"`
			OK     bool   `json:"ok"`
			Error  string `json:"error"`
		} `json:"catalog"`
		Runner *struct {
			Backend string `json:"backend"`
			Running int    `json:"running"`
			Breaker string `json:"breaker"`
		} `json:"runner"`
	}
	if err := c.get("/v1/status", nil, &status); err != nil {
		return err
	}

	fmt.Printf("Daemon:      %s (v%s)\n", status.Status, status.Version)
	fmt.Printf("Credentials: %d\n", status.Credentials)
	catalogState := "ok"
	if !status.Catalog.OK {
		catalogState = "unavailable"
		if status.Catalog.Error != "" {
			catalogState += ": " + status.Catalog.Error
		}
	}
	fmt.Printf("Catalog:     %s (%s)\n", status.Catalog.Driver, catalogState)
	if status.Runner != nil {
		fmt.Printf("Runner:      %s, %d running, breaker %s\n",
			status.Runner.Backend, status.Runner.Running, status.Runner.Breaker)
	}
	fmt.Printf("Events:      %v\n", status.Events)
	return nil
}

func cmdTopics(c *client, args []string) error {
	fs := flag.NewFlagSet("topics", flag.ContinueOnError)
	withQuestions := fs.Bool("questions", false, "include questions")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	var query url.Values
	if *withQuestions {
		query = url.Values{"include": {"questions"}}
	}

	var resp struct {
		Topics []catalog.Topic `json:"topics"`
	}
	if err := c.get("/v1/topics", query, &resp); err != nil {
		return err
	}

	if len(resp.Topics) == 0 {
		fmt.Println("No topics found.")
		return nil
	}
	for _, t := range resp.Topics {
		fmt.Printf("%s\n", t.Title)
		printQuestions(t.Questions)
	}
	return nil
}

func cmdTopic(c *client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: dojo topic <title>")
	}

	var topic catalog.Topic
	if err := c.get("/v1/topics/"+url.PathEscape(args[0]), nil, &topic); err != nil {
		return err
	}

	fmt.Printf("%s\n", topic.Title)
	if len(topic.Questions) == 0 {
		fmt.Println("  (no questions)")
		return nil
	}
	printQuestions(topic.Questions)
	return nil
}

func printQuestions(questions []catalog.Question) {
	for _, q := range questions {
		fmt.Printf("  %3d  %-28s %s\n", q.ID, q.Title, q.Difficulty)
	}
}

func cmdQuestion(c *client, args []string) error {
	fs := flag.NewFlagSet("question", flag.ContinueOnError)
	language := fs.String("language", "", "starter code language")
	reveal := fs.Bool("reveal", false, "show the answer and explanation")
	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) < 1 {
		return fmt.Errorf("usage: dojo question <id> [--language l] [--reveal]")
	}
	id, err := strconv.ParseInt(positional[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid question id: %s", positional[0])
	}

	var q catalog.Question
	if err := c.get(fmt.Sprintf("/v1/questions/%d", id), nil, &q); err != nil {
		return err
	}

	var starter struct {
		Language string `json:"language"`
		Code     string `json:"code"`
	}
	query := url.Values{}
	if *language != "" {
		query.Set("language", *language)
	}
	if err := c.get(fmt.Sprintf("/v1/questions/%d/starter", id), query, &starter); err != nil {
		return err
	}

	fmt.Printf("# %s\n", q.Title)
	fmt.Printf("Topic: %s | Difficulty: %s\n\n", q.TopicTitle, q.Difficulty)
	fmt.Println(q.ProblemStatement)
	fmt.Printf("\n--- starter (%s) ---\n%s\n", starter.Language, starter.Code)

	if *reveal {
		fmt.Printf("\n--- answer ---\n%s\n", q.HiddenAnswer)
		if q.DetailedExplanation != "" {
			fmt.Printf("\n--- explanation ---\n%s\n", q.DetailedExplanation)
		}
	}
	return nil
}
