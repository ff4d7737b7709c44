package mcpserver

// PageFormat describes how NodePad pages are laid out, for LLM consumers that
// create or edit pages.
const PageFormat = `# NodePad Page Format

A page is a single Markdown file ending in ` + "`" + `.md` + "`" + `. Folders are plain directories.

## Title

The first line starting with ` + "`" + `# ` + "`" + ` is the page title. It is shown in the
sidebar, in search results and in breadcrumbs. Without one the file name is used.

` + "```" + `markdown
# Weekly standup 2025-01-20

Attendees: Alice, Bob.
` + "```" + `

## Tags

Tags are NOT written into the Markdown. They live in a sidecar file next to the
page (` + "`" + `standup.md` + "`" + ` -> ` + "`" + `standup.tags` + "`" + `) holding a comma-separated list.
Set them through the ` + "`" + `tags` + "`" + ` argument of ` + "`" + `save_page` + "`" + `.

- Tags compare case-insensitively: ` + "`" + `Go` + "`" + ` and ` + "`" + `go` + "`" + ` are the same tag.
- The spelling of the first occurrence is kept for display.
- Tags must not contain commas.

## Paths

- Paths are relative to the pages root and use forward slashes: ` + "`" + `projects/x/plan.md` + "`" + `.
- ` + "`" + `..` + "`" + ` is stripped and absolute paths are rejected.
- Folders and files starting with ` + "`" + `.` + "`" + ` are hidden from listings.
- Names must not contain ` + "`" + `< > : " / \ | ? *` + "`" + `.

## Images

Upload images with the ` + "`" + `upload_image` + "`" + ` tool, passing the page path. The image is
stored next to the page and the tool returns a ` + "`" + `markdownImage` + "`" + ` snippet such as
` + "`" + `![diagram](/pages/projects/x/diagram.png)` + "`" + ` to paste into the body.
Supported formats: png, jpg, jpeg, gif, webp, svg.

## Encoding

UTF-8, ending with a newline. Prefer Markdown over inline HTML.
`
