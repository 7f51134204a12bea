// bhoomictl es un CLI fino sobre la API HTTP: alta de services y operaciones
// del lado service (listar solicitudes, decidirlas) sin tocar la base.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTP         *http.Client
}

func (c *client) do(method, path string, body []byte, basicAuth bool) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if basicAuth {
		req.SetBasicAuth(c.ClientID, c.ClientSecret)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	var v any
	if json.Unmarshal(body, &v) == nil {
		p, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(p))
		return
	}
	fmt.Printf("status=%d body=%s\n", status, string(body))
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	cl := &client{
		BaseURL:      envOr("BHOOMI_URL", "http://localhost:8080"),
		ClientID:     envOr("BHOOMI_CLIENT_ID", ""),
		ClientSecret: envOr("BHOOMI_CLIENT_SECRET", ""),
		HTTP:         &http.Client{Timeout: 30 * time.Second},
	}

	root := &cobra.Command{
		Use:   "bhoomictl",
		Short: "CLI para operar la API de bhoomi",
	}
	root.PersistentFlags().StringVar(&cl.BaseURL, "url", cl.BaseURL, "URL base de la API (env BHOOMI_URL)")
	root.PersistentFlags().StringVar(&cl.ClientID, "client-id", cl.ClientID, "client_id del service (env BHOOMI_CLIENT_ID)")
	root.PersistentFlags().StringVar(&cl.ClientSecret, "client-secret", cl.ClientSecret, "client_secret del service (env BHOOMI_CLIENT_SECRET)")

	// ---- service ----
	serviceCmd := &cobra.Command{Use: "service", Short: "Registro y catálogo de services"}

	var regName, regDesc, regRedirect, regScopes string
	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Registrar un service (devuelve client_id y client_secret)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if regName == "" || regScopes == "" {
				return fmt.Errorf("faltan --name y --scopes")
			}
			payload, _ := json.Marshal(map[string]any{
				"name":         regName,
				"description":  regDesc,
				"redirect_uri": regRedirect,
				"scopes":       strings.Split(regScopes, ","),
			})
			status, body, err := cl.do("POST", "/v1/services", payload, false)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	registerCmd.Flags().StringVar(&regName, "name", "", "nombre del service")
	registerCmd.Flags().StringVar(&regDesc, "description", "", "descripción")
	registerCmd.Flags().StringVar(&regRedirect, "redirect-uri", "", "redirect URI")
	registerCmd.Flags().StringVar(&regScopes, "scopes", "", "scopes separados por coma")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Listar services activos",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/v1/services", nil, false)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	serviceCmd.AddCommand(registerCmd, listCmd)

	// ---- requests (lado service, Basic auth) ----
	requestsCmd := &cobra.Command{Use: "requests", Short: "Solicitudes del service autenticado"}

	var reqKind string
	reqListCmd := &cobra.Command{
		Use:   "list",
		Short: "Listar solicitudes recibidas",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1/service/requests"
			if reqKind != "" {
				path += "?kind=" + strings.ToUpper(reqKind)
			}
			status, body, err := cl.do("GET", path, nil, true)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	reqListCmd.Flags().StringVar(&reqKind, "kind", "", "LOAN | ADVISORY")

	var decStatus, decNotes string
	decideCmd := &cobra.Command{
		Use:   "decide <request-id>",
		Short: "Decidir una solicitud (APPROVED|ADVISED|REJECTED|REQUEST_DOC)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if decStatus == "" {
				return fmt.Errorf("falta --status")
			}
			payload, _ := json.Marshal(map[string]any{
				"status": strings.ToUpper(decStatus),
				"notes":  decNotes,
			})
			status, body, err := cl.do("POST", "/v1/service/requests/"+args[0]+"/decision", payload, true)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	decideCmd.Flags().StringVar(&decStatus, "status", "", "estado destino")
	decideCmd.Flags().StringVar(&decNotes, "notes", "", "notas de la decisión")

	docsCmd := &cobra.Command{
		Use:   "documents <request-id>",
		Short: "Ver el snapshot de documentos de una solicitud",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/v1/service/requests/"+args[0]+"/documents", nil, true)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	requestsCmd.AddCommand(reqListCmd, decideCmd, docsCmd)

	// ---- health ----
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Chequear /readyz",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/readyz", nil, false)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fmt.Errorf("not ready: status=%d body=%s", status, string(body))
			}
			fmt.Println("ok")
			return nil
		},
	}

	root.AddCommand(serviceCmd, requestsCmd, healthCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
