package mcpserver

// DocumentFormat describes how archived pairs are stored on disk, so LLM
// consumers can read get_conversation output or edit files by hand.
const DocumentFormat = `# Q&A Archive Document Format

Every archived question/answer pair is one Markdown file in ` + "`" + `<dataRoot>/archive/` + "`" + `.

## Structure

` + "```" + `markdown
---
id: 20260211_1553                   # creation minute, _NN suffix for later pairs in the same minute
title: Closures in Go               # defaults to "Untitled"
timestamp: 2026-02-11T15:53:07.123Z # creation time, RFC 3339 UTC
source: claude                      # where the conversation came from; defaults to "unknown"
url: https://example.com/chat/1
tags:
  - go
  - closures
version: 0                          # incremented on every update
thread_pairs: []                    # legacy; threads.json decides membership
---

## Question
What is a closure?

## Answer
A function value that references variables from outside its body.
` + "```" + `

## Rules

1. The YAML frontmatter comes first, fenced by ` + "`" + `---` + "`" + ` lines.
2. The body holds a ` + "`" + `## Question` + "`" + ` section followed by a ` + "`" + `## Answer` + "`" + ` section.
   Headings with one or more ` + "`" + `#` + "`" + ` are accepted when reading.
3. Lines inside the question or answer that start with ` + "`" + `#` + "`" + ` are stored with a
   leading backslash so they cannot be mistaken for section headings.
4. A file without a ` + "`" + `## Answer` + "`" + ` heading is read as an answer with an empty question.
5. File names are ` + "`" + `<minute>_<NN>_<source>_<question-slug>.md` + "`" + `. When the frontmatter
   has no id, the file name without ` + "`" + `.md` + "`" + ` is used.

## Threads

` + "`" + `<dataRoot>/threads.json` + "`" + ` maps thread ids (` + "`" + `thread_YYYYMMDD_HHMMSS` + "`" + `) to
` + "`" + `{"name": ..., "items": [pair ids in reading order]}` + "`" + `. Deleting a thread never
deletes its pairs, and deleting a pair leaves dangling thread items in place.
`
