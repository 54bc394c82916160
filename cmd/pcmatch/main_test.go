package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/pcmatch/internal/domain/model"
	"github.com/okian/pcmatch/internal/domain/report"
	. "github.com/smartystreets/goconvey/convey"
)

func run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

const infeasibleYAML = `reviewers:
  - email: only@x.org
papers:
  - ID: "1"
    Title: One
    Status: Submitted
  - ID: "2"
    Title: Two
    Status: Submitted
preferences: []
`

func TestSynthAndSolve(t *testing.T) {
	Convey("Given a synthetic snapshot written as YAML", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "snap.yaml")
		code, _, stderr := run("synth", "--reviewers", "30", "--papers", "20", "--seed", "3", "--output", path)
		So(code, ShouldEqual, ExitSuccess)
		So(stderr, ShouldBeEmpty)

		Convey("Then it should load back as the same snapshot", func() {
			snap, err := readSnapshot(path, nil)
			So(err, ShouldBeNil)
			So(snap.Reviewers, ShouldHaveLength, 30)
			So(snap.Papers, ShouldHaveLength, 20)
		})

		Convey("When solving the discussion-lead round with stats", func() {
			code, stdout, stderr := run("solve", "--input", path, "--round", "dl", "--stats")

			Convey("Then lead rows and stats should be printed", func() {
				So(code, ShouldEqual, ExitSuccess)
				So(stderr, ShouldBeEmpty)
				var out struct {
					Round       model.Round         `json:"round"`
					Assignments []report.CompactRow `json:"assignments"`
					Stats       *report.Stats       `json:"stats"`
				}
				So(json.Unmarshal([]byte(stdout), &out), ShouldBeNil)
				So(out.Round, ShouldEqual, model.RoundDL)
				So(out.Assignments, ShouldNotBeEmpty)
				for _, row := range out.Assignments {
					So(row.Action, ShouldEqual, report.ActionLead)
				}
				So(out.Stats, ShouldNotBeNil)
				So(out.Stats.Assignments, ShouldEqual, len(out.Assignments))
			})
		})

		Convey("When solving with the detailed table", func() {
			code, stdout, _ := run("solve", "-i", path, "-r", "DL", "--detailed")

			Convey("Then detailed rows should be printed without stats", func() {
				So(code, ShouldEqual, ExitSuccess)
				So(stdout, ShouldContainSubstring, `"title"`)
				So(stdout, ShouldNotContainSubstring, `"stats"`)
			})
		})
	})

	Convey("Given a synthetic snapshot written as JSON", t, func() {
		path := filepath.Join(t.TempDir(), "snap.json")
		code, _, _ := run("synth", "--seed", "9", "--output", path)
		So(code, ShouldEqual, ExitSuccess)

		Convey("Then the file should be JSON and solvable", func() {
			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(strings.TrimSpace(string(data)), ShouldStartWith, "{")
			code, _, _ := run("solve", "--input", path, "--round", "DL")
			So(code, ShouldEqual, ExitSuccess)
		})
	})

	Convey("Given the same seed twice", t, func() {
		_, first, _ := run("synth", "--seed", "5", "--format", "json")
		_, second, _ := run("synth", "--seed", "5", "--format", "json")

		Convey("Then the output should be identical", func() {
			So(first, ShouldNotBeEmpty)
			So(second, ShouldEqual, first)
		})
	})
}

func TestSolveErrors(t *testing.T) {
	Convey("Given an infeasible snapshot", t, func() {
		path := filepath.Join(t.TempDir(), "tight.yaml")
		So(os.WriteFile(path, []byte(infeasibleYAML), 0o600), ShouldBeNil)

		Convey("When solving the first round", func() {
			code, stdout, stderr := run("solve", "--input", path, "--round", "R1")

			Convey("Then the infeasible exit code and papers should be reported", func() {
				So(code, ShouldEqual, ExitInfeasible)
				So(stdout, ShouldBeEmpty)
				So(stderr, ShouldContainSubstring, "papers: 1, 2")
			})
		})

		Convey("When solving an unknown round", func() {
			code, _, stderr := run("solve", "--input", path, "--round", "R7")
			So(code, ShouldEqual, ExitError)
			So(stderr, ShouldContainSubstring, "unknown round")
		})
	})

	Convey("Given missing arguments", t, func() {
		Convey("Then solve without input should fail", func() {
			code, _, stderr := run("solve", "--round", "R1")
			So(code, ShouldEqual, ExitError)
			So(stderr, ShouldContainSubstring, "input")
		})

		Convey("And a missing file should fail", func() {
			code, _, _ := run("solve", "--input", filepath.Join(t.TempDir(), "nope.yaml"))
			So(code, ShouldEqual, ExitError)
		})

		Convey("And an unknown synth format should fail", func() {
			code, _, stderr := run("synth", "--format", "toml")
			So(code, ShouldEqual, ExitError)
			So(stderr, ShouldContainSubstring, "unknown format")
		})
	})
}
