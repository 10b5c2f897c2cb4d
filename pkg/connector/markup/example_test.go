// Copyright 2024-2026 Aiku AI

package markup_test

import (
	"fmt"

	"github.com/aiku/sockbot-mattermost/pkg/connector/markup"
)

func ExampleRender() {
	r := markup.Render("**hello** world")
	fmt.Println(r.HTML)
	// Output: <strong>hello</strong> world
}
