package apiclient

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/agroadmin/internal/domain/model"
	"github.com/bigkaa/agroadmin/internal/notify"
)

func resp(status int, body string) *rawResponse {
	return &rawResponse{status: status, body: []byte(body)}
}

func TestDecodeOutcome_SuccessFalseIsGenericFailure(t *testing.T) {
	out := decodeOutcome[model.Warehouse](resp(http.StatusOK,
		`{"success":false,"message":"No se puede archivar","notification":{"message":"Bloqueada","type":"warning"}}`))

	gf, ok := out.(*GenericFailure)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "No se puede archivar", gf.Message)
	require.NotNil(t, gf.Notification)
	assert.Equal(t, notify.SeverityWarning, gf.Notification.Severity)
}

func TestDecodeOutcome_NestedDataErrors(t *testing.T) {
	out := decodeOutcome[model.Season](resp(http.StatusUnprocessableEntity, `{
		"success": false,
		"data": {"errors": {
			"nombre": "Requerido",
			"fechas": {"inicio": ["Formato inválido"], "fin": [{"message": "Antes del inicio"}]},
			"__all__": ["Temporada duplicada"]
		}}
	}`))

	vf, ok := out.(*ValidationFailure)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, []string{"Requerido"}, vf.FieldErrors["nombre"])
	assert.Equal(t, []string{"Formato inválido"}, vf.FieldErrors["fechas.inicio"])
	assert.Equal(t, []string{"Antes del inicio"}, vf.FieldErrors["fechas.fin"])
	assert.Equal(t, []string{"Temporada duplicada"}, vf.FormErrors)
	assert.Equal(t, "fechas.fin", FirstField(vf.FieldErrors, nil))
	assert.Equal(t, "nombre", FirstField(vf.FieldErrors, []string{"nombre", "año"}))
}

func TestDecodeOutcome_ConflictIsValidation(t *testing.T) {
	out := decodeOutcome[model.Warehouse](resp(http.StatusConflict, `{"errors":{"nombre":["Ya existe"]}}`))

	vf, ok := out.(*ValidationFailure)
	require.True(t, ok, "got %T", out)
	assert.True(t, errors.Is(vf, ErrConflict))
	assert.Equal(t, msgValidation, UserMessage(vf))
}

func TestDecodeOutcome_BadRequestWithoutFieldsIsGeneric(t *testing.T) {
	out := decodeOutcome[model.Warehouse](resp(http.StatusBadRequest, `{"detail":"Solicitud inválida"}`))

	gf, ok := out.(*GenericFailure)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "Solicitud inválida", gf.Message)
}

func TestDecodeOutcome_ErrorObjectMessage(t *testing.T) {
	out := decodeOutcome[model.Warehouse](resp(http.StatusServiceUnavailable,
		`{"error":{"code":"UNAVAILABLE","message":"Mantenimiento"}}`))

	gf, ok := out.(*GenericFailure)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "Mantenimiento", gf.Message)
}

func TestDecodeOutcome_NonJSONBody(t *testing.T) {
	out := decodeOutcome[model.Warehouse](resp(http.StatusBadGateway, `<html>bad gateway</html>`))

	gf, ok := out.(*GenericFailure)
	require.True(t, ok, "got %T", out)
	assert.Empty(t, gf.Message)
	assert.Equal(t, msgServer, UserMessage(gf))
}

func TestDecodeNotification_NumericKeyAndUnknownType(t *testing.T) {
	note := decodeNotification(decodeObject([]byte(`{"notification":{"message":"Hecho","type":"ok","key":12}}`)))

	require.NotNil(t, note)
	assert.Equal(t, "12", note.Key)
	assert.Equal(t, notify.SeveritySuccess, note.Severity)

	note = decodeNotification(decodeObject([]byte(`{"notification":{"message":"Algo","type":"rara"}}`)))
	require.NotNil(t, note)
	assert.Equal(t, notify.SeverityError, note.Severity)

	note = decodeNotification(decodeObject([]byte(`{"notification":{"message":"Algo"}}`)))
	require.NotNil(t, note)
	assert.Equal(t, notify.SeverityInfo, note.Severity)
}

func TestDecodeList_PlainArray(t *testing.T) {
	page, err := decodeList[model.Warehouse](resp(http.StatusOK, `[{"id":1},{"id":2},{"id":3}]`), 1, 2)

	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, 3, page.Meta.Count)
	assert.Equal(t, 2, page.Meta.TotalPages)
}

func TestDecodeList_DataArrayWithPagination(t *testing.T) {
	page, err := decodeList[model.Warehouse](resp(http.StatusOK,
		`{"success":true,"data":[{"id":1}],"pagination":{"total":31,"limit":15,"page":3}}`), 1, 10)

	require.NoError(t, err)
	assert.Equal(t, 31, page.Meta.Count)
	assert.Equal(t, 15, page.Meta.PageSize)
	assert.Equal(t, 3, page.Meta.Page)
	assert.Equal(t, 3, page.Meta.TotalPages)
}

func TestDecodeList_SuccessFalse(t *testing.T) {
	_, err := decodeList[model.Warehouse](resp(http.StatusOK, `{"success":false,"message":"Sin permisos"}`), 1, 10)

	var gf *GenericFailure
	require.ErrorAs(t, err, &gf)
	assert.Equal(t, "Sin permisos", UserMessage(err))
}
