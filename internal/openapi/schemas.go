package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
)

// componentSchemas builds the named schemas shared by every operation.
func componentSchemas() openapi3.Schemas {
	bridgeStates := make([]any, 0, len(model.BridgeStates))
	for _, s := range model.BridgeStates {
		bridgeStates = append(bridgeStates, string(s))
	}
	roles := make([]any, 0, len(model.Roles))
	for _, r := range model.Roles {
		roles = append(roles, string(r))
	}

	bridgeState := openapi3.NewStringSchema().WithEnum(bridgeStates...)
	role := openapi3.NewStringSchema().WithEnum(roles...)

	event := openapi3.NewObjectSchema().
		WithProperty("event_id", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("source_device_id", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("bridge_state", bridgeState).
		WithProperty("bridge_confidence", openapi3.NewFloat64Schema().WithMin(0).WithMax(1)).
		WithProperty("timestamp", openapi3.NewDateTimeSchema()).
		WithRequired([]string{"event_id", "source_device_id", "bridge_state", "bridge_confidence", "timestamp"})
	event.Description = "An observation of the bridge reported by a camera device."

	state := openapi3.NewObjectSchema().
		WithProperty("state_id", openapi3.NewStringSchema().WithFormat("uuid")).
		WithProperty("bridge_state", bridgeState).
		WithProperty("timestamp", openapi3.NewDateTimeSchema()).
		WithProperty("last_event_id", openapi3.NewStringSchema()).
		WithRequired([]string{"state_id", "bridge_state", "timestamp", "last_event_id"}).
		WithNullable()
	state.Description = "The reconciled bridge state, or null before the first event."

	admin := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewInt64Schema()).
		WithProperty("username", openapi3.NewStringSchema()).
		WithProperty("role", role).
		WithProperty("is_active", openapi3.NewBoolSchema()).
		WithProperty("created_at", openapi3.NewDateTimeSchema()).
		WithProperty("updated_at", openapi3.NewDateTimeSchema()).
		WithProperty("last_login_at", openapi3.NewDateTimeSchema().WithNullable())

	adminCreate := openapi3.NewObjectSchema().
		WithProperty("username", openapi3.NewStringSchema().
			WithMinLength(model.UsernameMinLen).WithMaxLength(model.UsernameMaxLen)).
		WithProperty("password", openapi3.NewStringSchema().
			WithMinLength(model.PasswordMinLen).WithMaxLength(model.PasswordMaxLen).WithFormat("password")).
		WithProperty("role", openapi3.NewStringSchema().WithEnum(roles...).WithDefault(string(model.RoleViewer))).
		WithRequired([]string{"username", "password"})

	adminUpdate := openapi3.NewObjectSchema().
		WithProperty("is_active", openapi3.NewBoolSchema()).
		WithRequired([]string{"is_active"})

	login := openapi3.NewObjectSchema().
		WithProperty("username", openapi3.NewStringSchema()).
		WithProperty("password", openapi3.NewStringSchema().WithFormat("password")).
		WithRequired([]string{"username", "password"})

	loginResponse := openapi3.NewObjectSchema().
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("admin", openapi3.NewObjectSchema().
			WithProperty("id", openapi3.NewInt64Schema()).
			WithProperty("username", openapi3.NewStringSchema()).
			WithProperty("role", role))

	adminList := openapi3.NewObjectSchema().
		WithPropertyRef("resource", &openapi3.SchemaRef{Value: openapi3.NewArraySchema().WithItems(admin)}).
		WithProperty("meta", openapi3.NewObjectSchema().
			WithProperty("count", openapi3.NewInt64Schema()))

	message := openapi3.NewObjectSchema().
		WithProperty("message", openapi3.NewStringSchema())

	errorResponse := openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewObjectSchema().
			WithProperty("code", openapi3.NewInt32Schema()).
			WithProperty("message", openapi3.NewStringSchema()).
			WithProperty("context", openapi3.NewObjectSchema()))

	return openapi3.Schemas{
		"Event":           openapi3.NewSchemaRef("", event),
		"CurrentState":    openapi3.NewSchemaRef("", state),
		"Admin":           openapi3.NewSchemaRef("", admin),
		"AdminCreate":     openapi3.NewSchemaRef("", adminCreate),
		"AdminUpdate":     openapi3.NewSchemaRef("", adminUpdate),
		"AdminList":       openapi3.NewSchemaRef("", adminList),
		"LoginRequest":    openapi3.NewSchemaRef("", login),
		"LoginResponse":   openapi3.NewSchemaRef("", loginResponse),
		"MessageResponse": openapi3.NewSchemaRef("", message),
		"ErrorResponse":   openapi3.NewSchemaRef("", errorResponse),
	}
}
