package auth

import (
	"fmt"
	"io"
	"strings"
)

// ClientIDPage is where MyAnimeList API clients are registered
const ClientIDPage = "https://myanimelist.net/apiconfig"

// ShowClientIDGuide writes instructions for obtaining a client id
func ShowClientIDGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "MYANIMELIST CLIENT ID")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The harvester authenticates to the MyAnimeList API with a client id.")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  1. Log in and open %s\n", ClientIDPage)
	fmt.Fprintln(w, "  2. Click 'Create ID' and fill in the application form")
	fmt.Fprintln(w, "     (App Type 'other' and any redirect URL will do)")
	fmt.Fprintln(w, "  3. Open the new client and copy its 'Client ID'")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The client secret is not needed; public endpoints only take the id.")
	fmt.Fprintf(w, "Alternatively export %s before running.\n", ClientIDEnv)
	fmt.Fprintln(w, strings.Repeat("=", 72))
}
