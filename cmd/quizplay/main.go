// quizplay is a terminal quiz player. It drives the same session state
// machine the web client uses, over the HTTP client, so a full play-through
// against a running server exercises the whole stack end to end.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/kmhistory/quizhub-backend/internal/client"
	"github.com/kmhistory/quizhub-backend/internal/logger"
	"github.com/kmhistory/quizhub-backend/internal/model"
	"github.com/kmhistory/quizhub-backend/internal/quizsession"
)

func main() {
	var (
		server     string
		email      string
		bundleID   int
		category   string
		difficulty string
		topicID    int
	)
	flag.StringVar(&server, "server", "http://localhost:8080", "Quiz server base URL")
	flag.StringVar(&email, "email", "", "Login email (optional; anonymous random play works without it)")
	flag.IntVar(&bundleID, "bundle", 0, "Bundle id to play (omit for random mode)")
	flag.StringVar(&category, "category", "", "Random mode category filter (PRE_MODERN_HISTORY, MODERN_HISTORY)")
	flag.StringVar(&difficulty, "difficulty", "", "Random mode difficulty filter (BASIC, STANDARD, ADVANCED)")
	flag.IntVar(&topicID, "topic", 0, "Random mode topic id filter")
	flag.Parse()

	log := logger.Setup("warn", "pretty")
	ctx := context.Background()

	api, err := client.New(server)
	if err != nil {
		fmt.Fprintln(os.Stderr, "client setup failed:", err)
		os.Exit(1)
	}

	if email != "" {
		fmt.Print("Password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			fmt.Fprintln(os.Stderr, "password read failed:", err)
			os.Exit(1)
		}
		user, err := api.Login(ctx, email, string(bytePassword))
		if err != nil {
			fmt.Fprintln(os.Stderr, "login failed:", err)
			os.Exit(1)
		}
		fmt.Printf("Logged in as %s\n\n", user.Nickname)
	}

	session := quizsession.NewController(api, api, api, log)
	defer session.Close()

	stdin := bufio.NewReader(os.Stdin)

	if bundleID > 0 {
		playBundle(ctx, session, stdin, bundleID)
		return
	}
	playRandom(ctx, session, stdin, quizsession.Filter{
		Category:   model.Category(category),
		Difficulty: model.Difficulty(difficulty),
		TopicID:    topicID,
	})
}

func playRandom(ctx context.Context, session *quizsession.Controller, stdin *bufio.Reader, filter quizsession.Filter) {
	if err := session.StartRandom(ctx, filter); err != nil {
		exitOnSessionError(err)
	}

	for {
		askAndGrade(ctx, session, stdin)

		fmt.Print("\n[n]ext question or [q]uit? ")
		if readLine(stdin) == "q" {
			session.Exit(ctx)
			return
		}
		if err := session.Advance(ctx); err != nil {
			if errors.Is(err, quizsession.ErrNoQuestion) {
				fmt.Println("No more questions match the filters.")
				return
			}
			exitOnSessionError(err)
		}
	}
}

func playBundle(ctx context.Context, session *quizsession.Controller, stdin *bufio.Reader, bundleID int) {
	if err := session.StartBundle(ctx, bundleID); err != nil {
		exitOnSessionError(err)
	}

	for session.Phase() != quizsession.PhaseCompleted {
		askAndGrade(ctx, session, stdin)

		fmt.Print("\n[n]ext, [r]etry bundle, or [q]uit? ")
		switch readLine(stdin) {
		case "q":
			session.Exit(ctx)
			fmt.Println("Progress saved. Bye.")
			return
		case "r":
			if err := session.Retry(ctx); err != nil {
				exitOnSessionError(err)
			}
		default:
			if err := session.Advance(ctx); err != nil {
				exitOnSessionError(err)
			}
		}
	}

	fmt.Printf("\nBundle complete! %d correct.\n", session.CorrectCount())
	session.Exit(ctx)
}

// askAndGrade shows the current question, reads an answer and prints the
// verdict. Local validation failures re-prompt without a server round trip.
func askAndGrade(ctx context.Context, session *quizsession.Controller, stdin *bufio.Reader) {
	question := session.Current()
	if question == nil {
		return
	}

	fmt.Printf("\n%s\n", question.QuestionText)
	if question.Type == model.QuestionTypeMultiple {
		for i, choice := range question.Choices {
			fmt.Printf("  %d) %s\n", i+1, choice.Content)
		}
	}

	for {
		fmt.Print("> ")
		answer := readLine(stdin)

		// For MULTIPLE the server accepts the choice id; translate the
		// menu number the player typed.
		if question.Type == model.QuestionTypeMultiple {
			if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(question.Choices) {
				answer = strconv.Itoa(question.Choices[n-1].ID)
			}
		}

		result, err := session.Submit(ctx, answer)
		if err != nil {
			switch {
			case errors.Is(err, quizsession.ErrEmptyAnswer), errors.Is(err, quizsession.ErrNoChoiceSelected):
				fmt.Println("Please enter an answer.")
				continue
			default:
				exitOnSessionError(err)
			}
		}

		if result.IsCorrect {
			fmt.Println("Correct!")
		} else {
			fmt.Printf("Wrong. The correct answer is: %s\n", result.CorrectAnswer)
		}
		if result.Explanation != nil && *result.Explanation != "" {
			fmt.Println(*result.Explanation)
		}
		return
	}
}

func readLine(stdin *bufio.Reader) string {
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

func exitOnSessionError(err error) {
	switch {
	case errors.Is(err, quizsession.ErrLoginRequired):
		fmt.Fprintln(os.Stderr, "Login required: re-run with -email.")
	case errors.Is(err, quizsession.ErrNoQuestion):
		fmt.Fprintln(os.Stderr, "No question available for these filters.")
	case errors.Is(err, quizsession.ErrNotFound):
		fmt.Fprintln(os.Stderr, "Bundle not found.")
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(1)
}
