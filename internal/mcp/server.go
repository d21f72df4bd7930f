/*
Package mcp exposes tripsense over the Model Context Protocol (stdio).

Tools:
  - search_destinations: semantic search over the catalog
  - analyze_review: sentiment and keywords for one review
  - recommend_destinations: personalized recommendation bundle
  - most_loved: destinations ranked by likes
  - nearby: destinations within a radius of a point
  - destinations_by_tag: destinations filed under a tag

Every tool answers with JSON text. Protocol frames use stdout, so logs must
go to stderr.
*/
package mcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/khanglvm/tripsense/internal/app"
	"github.com/khanglvm/tripsense/internal/catalog"
	"github.com/khanglvm/tripsense/internal/search"
	"github.com/khanglvm/tripsense/internal/version"
)

// Server serves one App over MCP.
type Server struct {
	app       *app.App
	mcpServer *server.MCPServer
	logger    zerolog.Logger
}

// NewServer registers every tool against a.
func NewServer(a *app.App, logger zerolog.Logger) *Server {
	s := &Server{
		app:    a,
		logger: logger.With().Str("component", "mcp").Logger(),
	}
	s.mcpServer = server.NewMCPServer(
		"tripsense",
		version.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Serve reads requests from in and writes responses to out until ctx is
// cancelled or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info().Int("destinations", s.app.Catalog.Len()).Msg("mcp server listening on stdio")
	err := server.NewStdioServer(s.mcpServer).Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("search_destinations",
		mcp.WithDescription(`Search travel destinations by meaning, not just keywords.

Results are ranked by similarity between the query and each destination's name,
description, city, country, subcategories and subtypes. City, country and name
matches are boosted. Scores can exceed 1.0.

Example queries: "quiet beach in Spain", "art museums", "paris"`),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural language description of the place")),
		mcp.WithNumber("limit", mcp.Description(fmt.Sprintf("Results to return, %d to %d (default %d)", app.MinLimit, app.MaxLimit, app.DefaultLimit))),
		mcp.WithBoolean("retry", mcp.Description("Ignore cached results for this query")),
	), s.handleSearch)

	s.mcpServer.AddTool(mcp.NewTool("analyze_review",
		mcp.WithDescription("Classify a review's sentiment and extract its positive and negative keywords. A rating of 4-5 forces POSITIVE, 1-2 forces NEGATIVE."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Review text")),
		mcp.WithNumber("rating", mcp.Description("Star rating, 1 to 5")),
	), s.handleAnalyze)

	s.mcpServer.AddTool(mcp.NewTool("recommend_destinations",
		mcp.WithDescription("Recommend destinations from a user's likes, reviews and selected tags. user_id 0 or omitted is an anonymous visitor."),
		mcp.WithNumber("user_id", mcp.Description("User ID from the activity snapshot")),
		mcp.WithNumber("limit", mcp.Description("Items per list (default 10)")),
		mcp.WithString("recently_viewed", mcp.Description("Comma-separated destination IDs, most recent first")),
		mcp.WithString("recently_viewed_items", mcp.Description(`JSON array of viewed destinations as {"id","country","subcategories","subtypes"}; use for destinations outside the catalog`)),
	), s.handleRecommend)

	s.mcpServer.AddTool(mcp.NewTool("most_loved",
		mcp.WithDescription("List the most liked destinations with their average review rating."),
		mcp.WithNumber("limit", mcp.Description("Destinations to return (default 10)")),
	), s.handleMostLoved)

	s.mcpServer.AddTool(mcp.NewTool("nearby",
		mcp.WithDescription("List destinations within a radius of a coordinate, closest first. Distances are in kilometres."),
		mcp.WithNumber("latitude", mcp.Required(), mcp.Description("Latitude in degrees")),
		mcp.WithNumber("longitude", mcp.Required(), mcp.Description("Longitude in degrees")),
		mcp.WithNumber("radius_km", mcp.Description(fmt.Sprintf("Search radius (default %.0f)", catalog.DefaultRadiusKm))),
		mcp.WithNumber("limit", mcp.Description(fmt.Sprintf("Destinations to return (default %d)", catalog.DefaultNearbyLimit))),
	), s.handleNearby)

	s.mcpServer.AddTool(mcp.NewTool("destinations_by_tag",
		mcp.WithDescription(fmt.Sprintf("List up to %d destinations whose primary subcategory matches a tag. Tags match case-insensitively, '&' and 'and' are interchangeable, and partial names are accepted.", catalog.TagLimit)),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag such as 'Museums' or 'Parks and Nature'")),
	), s.handleByTag)
}

type searchResponse struct {
	Query   string          `json:"query"`
	Limit   int             `json:"limit"`
	Count   int             `json:"count"`
	Results []search.Result `json:"results"`
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(request.GetString("query", ""))
	if query == "" {
		return mcp.NewToolResultError("query parameter required"), nil
	}
	limit := app.ClampLimit(int(request.GetFloat("limit", 0)))

	results, err := s.app.Search(ctx, query, limit, request.GetBool("retry", false))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(searchResponse{Query: query, Limit: limit, Count: len(results), Results: results})
}

func (s *Server) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := request.GetString("content", "")

	var rating *float64
	if _, ok := request.GetArguments()["rating"]; ok {
		r := request.GetFloat("rating", 0)
		if r < 1 || r > 5 {
			return mcp.NewToolResultError("rating must be between 1 and 5"), nil
		}
		rating = &r
	}

	analysis, err := s.app.Analyze(ctx, content, rating)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(analysis)
}

func (s *Server) handleRecommend(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := int64(request.GetFloat("user_id", 0))
	limit := int(request.GetFloat("limit", 10))
	if limit <= 0 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}

	ids, err := app.ParseIDs(request.GetString("recently_viewed", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var recent []catalog.Viewed
	if raw := strings.TrimSpace(request.GetString("recently_viewed_items", "")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &recent); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid recently_viewed_items: %v", err)), nil
		}
	}
	recent = append(recent, s.app.Catalog.Viewed(ids)...)

	bundle, err := s.app.Recommend(ctx, userID, limit, recent)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recommendation failed: %v", err)), nil
	}
	return jsonResult(bundle)
}

func (s *Server) handleMostLoved(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.app.Catalog.MostLoved(int(request.GetFloat("limit", 10))))
}

func (s *Server) handleNearby(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	_, hasLat := args["latitude"]
	_, hasLon := args["longitude"]
	if !hasLat || !hasLon {
		return mcp.NewToolResultError("latitude and longitude are required"), nil
	}
	lat := request.GetFloat("latitude", 0)
	lon := request.GetFloat("longitude", 0)
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return mcp.NewToolResultError("coordinates out of range"), nil
	}

	results := s.app.Catalog.Nearby(lat, lon, request.GetFloat("radius_km", 0), int(request.GetFloat("limit", 0)))
	return jsonResult(results)
}

type tagResponse struct {
	Tag          string                 `json:"tag"`
	Destinations []*catalog.Destination `json:"destinations"`
}

func (s *Server) handleByTag(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input := strings.TrimSpace(request.GetString("tag", ""))
	if input == "" {
		return mcp.NewToolResultError("tag parameter required"), nil
	}

	dests, tag, err := s.app.Catalog.ByTag(input)
	if errors.Is(err, catalog.ErrTagNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no tag matches %q; known tags: %s", input, strings.Join(s.app.Catalog.Tags(), ", "))), nil
	}
	if err != nil {
		return nil, err
	}
	return jsonResult(tagResponse{Tag: tag, Destinations: dests})
}

// jsonResult renders v as indented JSON without HTML escaping, so names like
// "Sights & Landmarks" reach the client verbatim.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(strings.TrimSuffix(buf.String(), "\n")), nil
}
