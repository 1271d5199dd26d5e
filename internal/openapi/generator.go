package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// SessionCookie is the cookie named by the cookieAuth security scheme.
const SessionCookie = "admin_session"

// Generate builds the OpenAPI 3 document describing the hutch HTTP API.
func Generate(baseURL, version string) *openapi3.T {
	if version == "" {
		version = "dev"
	}
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Watch the Hutch API",
			Description: "Bridge state tracking: camera events, the reconciled current state, and admin sessions.",
			Version:     version,
		},
		Tags: openapi3.Tags{
			{Name: "events", Description: "Bridge observations reported by camera devices."},
			{Name: "state", Description: "The reconciled current bridge state."},
			{Name: "admin", Description: "Admin sessions and account management."},
			{Name: "camera", Description: "Live camera stream signaling."},
		},
	}
	if baseURL != "" {
		doc.Servers = openapi3.Servers{{URL: baseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = componentSchemas()
	components.SecuritySchemes = openapi3.SecuritySchemes{
		"cookieAuth": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:        "apiKey",
				In:          "cookie",
				Name:        SessionCookie,
				Description: "Session token issued by POST /api/v1/admin/login.",
			},
		},
	}
	doc.Components = &components

	g := &generator{doc: doc}
	doc.Paths = openapi3.NewPaths()
	g.addEventPaths()
	g.addStatePaths()
	g.addAdminPaths()
	g.addCameraPaths()
	return doc
}

type generator struct {
	doc *openapi3.T
}

// ref returns a reference to a component schema, with the resolved value
// attached so the document validates without a loader pass.
func (g *generator) ref(name string) *openapi3.SchemaRef {
	var value *openapi3.Schema
	if s, ok := g.doc.Components.Schemas[name]; ok {
		value = s.Value
	}
	return openapi3.NewSchemaRef("#/components/schemas/"+name, value)
}

func (g *generator) jsonResponse(description, schema string) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{
		Value: openapi3.NewResponse().
			WithDescription(description).
			WithJSONSchemaRef(g.ref(schema)),
	}
}

func (g *generator) errorResponse(description string) *openapi3.ResponseRef {
	return g.jsonResponse(description, "ErrorResponse")
}

func (g *generator) jsonBody(schema string) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithRequired(true).
			WithJSONSchemaRef(g.ref(schema)),
	}
}

func cookieSecurity() *openapi3.SecurityRequirements {
	return openapi3.NewSecurityRequirements().
		With(openapi3.NewSecurityRequirement().Authenticate("cookieAuth"))
}

func (g *generator) addEventPaths() {
	list := &openapi3.Operation{
		Tags:        []string{"events"},
		Summary:     "List events",
		Description: "Returns recorded events, newest first.",
		OperationID: "listEvents",
		Parameters: openapi3.Parameters{
			{Value: openapi3.NewQueryParameter("limit").
				WithDescription("Maximum events to return. Omit for all events.").
				WithSchema(openapi3.NewIntegerSchema().WithMin(1))},
		},
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(200, &openapi3.ResponseRef{
				Value: openapi3.NewResponse().
					WithDescription("Events, newest first").
					WithJSONSchema(openapi3.NewArraySchema().WithItems(g.ref("Event").Value)),
			}),
			openapi3.WithStatus(500, g.errorResponse("Internal server error")),
		),
	}

	create := &openapi3.Operation{
		Tags:        []string{"events"},
		Summary:     "Record an event",
		Description: "Stores the event and reconciles the current state. Replaying an event id returns the stored event with status 200.",
		OperationID: "createEvent",
		RequestBody: g.jsonBody("Event"),
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(201, g.jsonResponse("Event recorded", "Event")),
			openapi3.WithStatus(200, g.jsonResponse("Event already recorded", "Event")),
			openapi3.WithStatus(400, g.errorResponse("Malformed request body")),
			openapi3.WithStatus(422, g.errorResponse("Event failed validation")),
			openapi3.WithStatus(429, g.errorResponse("Too many requests")),
			openapi3.WithStatus(500, g.errorResponse("Internal server error")),
		),
	}

	g.doc.Paths.Set("/api/v1/events", &openapi3.PathItem{Get: list, Post: create})
}

func (g *generator) addStatePaths() {
	get := &openapi3.Operation{
		Tags:        []string{"state"},
		Summary:     "Get the current bridge state",
		Description: "Returns null until the first event has been reconciled.",
		OperationID: "getCurrentState",
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(200, g.jsonResponse("Current state", "CurrentState")),
			openapi3.WithStatus(500, g.errorResponse("Internal server error")),
		),
	}
	g.doc.Paths.Set("/api/v1/state", &openapi3.PathItem{Get: get})
}

func (g *generator) addAdminPaths() {
	login := &openapi3.Operation{
		Tags:        []string{"admin"},
		Summary:     "Log in",
		Description: "Verifies credentials and sets the admin_session cookie.",
		OperationID: "login",
		RequestBody: g.jsonBody("LoginRequest"),
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(200, g.jsonResponse("Logged in", "LoginResponse")),
			openapi3.WithStatus(400, g.errorResponse("Malformed request body")),
			openapi3.WithStatus(401, g.errorResponse("Invalid username or password")),
			openapi3.WithStatus(429, g.errorResponse("Too many requests")),
		),
	}
	logout := &openapi3.Operation{
		Tags:        []string{"admin"},
		Summary:     "Log out",
		Description: "Clears the admin_session cookie.",
		OperationID: "logout",
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(200, g.jsonResponse("Logged out", "MessageResponse")),
		),
	}
	me := &openapi3.Operation{
		Tags:        []string{"admin"},
		Summary:     "Current admin",
		OperationID: "getCurrentAdmin",
		Security:    cookieSecurity(),
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(200, g.jsonResponse("Authenticated admin", "Admin")),
			openapi3.WithStatus(401, g.errorResponse("Not authenticated")),
			openapi3.WithStatus(403, g.errorResponse("Admin account is inactive")),
		),
	}
	listUsers := &openapi3.Operation{
		Tags:        []string{"admin"},
		Summary:     "List admin accounts",
		Description: "Requires the EDITOR role or above.",
		OperationID: "listAdmins",
		Security:    cookieSecurity(),
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(200, g.jsonResponse("Admin accounts", "AdminList")),
			openapi3.WithStatus(401, g.errorResponse("Not authenticated")),
			openapi3.WithStatus(403, g.errorResponse("Insufficient role")),
		),
	}
	createUser := &openapi3.Operation{
		Tags:        []string{"admin"},
		Summary:     "Create an admin account",
		Description: "Requires the ADMIN role.",
		OperationID: "createAdmin",
		Security:    cookieSecurity(),
		RequestBody: g.jsonBody("AdminCreate"),
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(201, g.jsonResponse("Admin created", "Admin")),
			openapi3.WithStatus(400, g.errorResponse("Malformed request body")),
			openapi3.WithStatus(401, g.errorResponse("Not authenticated")),
			openapi3.WithStatus(403, g.errorResponse("Only ADMIN users can create new admin users")),
			openapi3.WithStatus(409, g.errorResponse("Username already exists")),
			openapi3.WithStatus(422, g.errorResponse("Validation failed")),
		),
	}
	updateUser := &openapi3.Operation{
		Tags:        []string{"admin"},
		Summary:     "Activate or deactivate an admin account",
		Description: "Requires the ADMIN role. Admins cannot deactivate themselves.",
		OperationID: "updateAdmin",
		Security:    cookieSecurity(),
		Parameters: openapi3.Parameters{
			{Value: openapi3.NewPathParameter("id").
				WithDescription("Admin id").
				WithSchema(openapi3.NewInt64Schema())},
		},
		RequestBody: g.jsonBody("AdminUpdate"),
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(200, g.jsonResponse("Admin updated", "Admin")),
			openapi3.WithStatus(400, g.errorResponse("Malformed request")),
			openapi3.WithStatus(401, g.errorResponse("Not authenticated")),
			openapi3.WithStatus(403, g.errorResponse("Only ADMIN users can manage admin users")),
			openapi3.WithStatus(404, g.errorResponse("Admin not found")),
			openapi3.WithStatus(422, g.errorResponse("Validation failed")),
		),
	}

	g.doc.Paths.Set("/api/v1/admin/login", &openapi3.PathItem{Post: login})
	g.doc.Paths.Set("/api/v1/admin/logout", &openapi3.PathItem{Post: logout})
	g.doc.Paths.Set("/api/v1/admin/me", &openapi3.PathItem{Get: me})
	g.doc.Paths.Set("/api/v1/admin/users", &openapi3.PathItem{Get: listUsers, Post: createUser})
	g.doc.Paths.Set("/api/v1/admin/users/{id}", &openapi3.PathItem{Patch: updateUser})
}

func (g *generator) addCameraPaths() {
	sdp := openapi3.NewStringSchema()
	sdp.Description = "Session Description Protocol body."

	whep := &openapi3.Operation{
		Tags:        []string{"camera"},
		Summary:     "WHEP signaling",
		Description: "Forwards an SDP offer to the media server and returns its SDP answer.",
		OperationID: "cameraWHEP",
		RequestBody: &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithSchema(sdp, []string{"application/sdp"}),
		},
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(201, &openapi3.ResponseRef{
				Value: openapi3.NewResponse().
					WithDescription("SDP answer from the media server").
					WithContent(openapi3.NewContentWithSchema(sdp, []string{"application/sdp"})),
			}),
			openapi3.WithStatus(400, g.errorResponse("Body is not a usable SDP offer")),
			openapi3.WithStatus(502, g.errorResponse("Media server unreachable")),
		),
	}
	g.doc.Paths.Set("/api/v1/camera/whep", &openapi3.PathItem{Post: whep})
}
