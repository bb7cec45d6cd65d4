package apitest

import "github.com/roach88/insightdash/internal/api"

func (s *Server) seed() {
	acme := api.Organization{
		ID:        "org-1",
		Name:      "Acme Corporation",
		Plan:      "enterprise",
		CreatedAt: "2024-01-15T10:00:00Z",
		Domain:    "acme.com",
		Settings: &api.OrganizationSettings{
			Features: &api.OrgFeatureFlags{Billing: true, Audit: true, Webhooks: true},
		},
	}
	techstart := api.Organization{
		ID:        "org-2",
		Name:      "TechStart Ltd",
		Plan:      "pro",
		CreatedAt: "2024-02-01T14:30:00Z",
		Domain:    "techstart.io",
	}
	s.orgs = []api.Organization{acme, techstart}

	s.users = []api.User{
		{
			ID:    "user-1",
			Name:  "Joao Silva",
			Email: "joao.silva@acme.com",
			Roles: []api.Role{{ID: "role-1", Name: "owner", Permissions: []string{"*"}}},
			OrgID: "org-1",
			Preferences: &api.UserPreferences{
				Theme:    "dark",
				Language: "pt-BR",
				Timezone: "America/Sao_Paulo",
			},
		},
		{
			ID:    "user-2",
			Name:  "Maria Santos",
			Email: "maria.santos@acme.com",
			Roles: []api.Role{{ID: "role-2", Name: "admin", Permissions: []string{"dashboard:*", "dataset:*", "user:read"}}},
			OrgID: "org-1",
		},
		{
			ID:    "user-3",
			Name:  "Carlos Oliveira",
			Email: "carlos.oliveira@acme.com",
			Roles: []api.Role{{ID: "role-3", Name: "analyst", Permissions: []string{"dashboard:read", "dashboard:create", "dataset:*"}}},
			OrgID: "org-1",
		},
	}
	s.me = s.users[0]

	s.datasets = []api.Dataset{
		{
			ID: "dataset-1", OrgID: "org-1", Name: "Vendas Q4 2024",
			SourceFileName: "vendas_q4_2024.csv", Mime: "text/csv",
			Rows: 15420, Columns: []string{"data", "produto", "categoria", "vendas", "regiao"},
			UploadedAt: "2024-12-15T14:30:00Z", UploadedBy: "user-1", Size: 2048576,
			Tags: []string{"vendas", "q4", "2024"},
		},
		{
			ID: "dataset-2", OrgID: "org-1", Name: "Clientes Ativos",
			SourceFileName: "clientes.json", Mime: "application/json",
			Rows: 8750, Columns: []string{"id", "nome", "email", "segmento"},
			UploadedAt: "2024-12-10T09:15:00Z", UploadedBy: "user-2", Size: 1536000,
		},
	}

	s.dashboards = []api.Dashboard{
		{
			ID: "dashboard-1", OrgID: "org-1", Name: "Dashboard de Vendas",
			Description: "Dashboard principal de vendas",
			Tiles: []api.Tile{{
				ID: "tile-1", Type: "line", Title: "Vendas por Mes",
				Config:   api.TileConfig{DatasetID: "dataset-1", XAxis: "data", YAxis: "vendas", Aggregation: "sum"},
				Position: api.TilePosition{X: 0, Y: 0, W: 6, H: 4},
			}},
			CreatedAt: "2024-12-20T10:00:00Z", CreatedBy: "user-1",
			Tags: []string{"vendas", "2025"}, Favorites: 3,
		},
		{
			ID: "dashboard-2", OrgID: "org-1", Name: "Dashboard Financeiro",
			Description: "Analise financeira completa",
			Tiles:       []api.Tile{},
			CreatedAt:   "2024-12-19T15:30:00Z", CreatedBy: "user-2",
			Tags: []string{"financeiro"}, IsPublic: true, Favorites: 7,
		},
	}

	s.jobs = []*api.AnalysisJob{
		{
			ID: "job-1", OrgID: "org-1", DatasetID: "dataset-1", Status: api.JobSucceeded,
			StartedAt: "2024-12-20T10:00:00Z", FinishedAt: "2024-12-20T10:05:00Z",
			Summary: "Sales grew 15% over the previous quarter", Progress: 100, CreatedBy: "user-1",
		},
		{
			ID: "job-2", OrgID: "org-1", DatasetID: "dataset-2", Status: api.JobRunning,
			StartedAt: "2024-12-20T11:00:00Z", Progress: 50, CreatedBy: "user-2",
		},
	}

	s.auditLogs = []api.AuditLog{
		{
			ID: "audit-1", OrgID: "org-1", ActorUserID: "user-1", ActorName: "Joao Silva",
			Action: "dashboard.created", TargetType: "dashboard", TargetID: "dashboard-1",
			TargetName: "Dashboard de Vendas", CreatedAt: "2024-12-20T10:00:00Z",
		},
		{
			ID: "audit-2", OrgID: "org-1", ActorUserID: "user-2", ActorName: "Maria Santos",
			Action: "dataset.uploaded", TargetType: "dataset", TargetID: "dataset-2",
			TargetName: "Clientes Ativos", CreatedAt: "2024-12-10T09:15:00Z",
		},
	}
}

func preview(columns []string) api.QueryResult {
	return api.QueryResult{
		Columns: columns,
		Rows: []any{
			[]any{"Value 1", "Value 2"},
			[]any{"Another 1", "Another 2"},
		},
		TotalRows: 2,
	}
}
