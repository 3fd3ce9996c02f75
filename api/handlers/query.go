package handlers

import (
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/SleepSheepQwQ/userdata-server/internal/store"
)

// =============================================================================
// 🔍 /query 处理
// =============================================================================

// maxQueryBodyBytes 查询请求体上限。一次查询只有一个 key=value 对有效，
// 正常请求远小于这个值。
const maxQueryBodyBytes = 64 << 10 // 64 KB

// filterPrecedence 过滤字段的固定优先级。一次查询只采用一个过滤条件，
// 不支持多字段 AND 组合。
var filterPrecedence = []string{"phone", "qq", "email"}

// handleQuery 解码表单体，按优先级选出一个过滤字段执行查询。
// 没有可识别的字段时直接返回空数组，不触碰存储。
func (rt *Router) handleQuery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxQueryBodyBytes))
	if err != nil {
		// 读失败按空过滤处理：降级为空结果，不让请求崩溃
		rt.logger.Warn("failed to read query body", zap.Error(err))
		WriteJSON(w, http.StatusOK, []store.UserRecord{})
		return
	}

	form := decodeFormBody(string(body))
	field, value, ok := chooseFilter(form)
	if !ok {
		WriteJSON(w, http.StatusOK, []store.UserRecord{})
		return
	}

	records := rt.dir.Lookup(r.Context(), field, value)
	WriteJSON(w, http.StatusOK, records)
}

// decodeFormBody 把 key=value&key=value 形式的请求体解码为映射。
// 注意：不做百分号解码——这是沿袭下来的可观测行为，值 "a%40b" 保持原样。
// 没有 '=' 的片段被忽略。
func decodeFormBody(body string) map[string]string {
	form := make(map[string]string)
	for _, pair := range strings.Split(body, "&") {
		if key, value, found := strings.Cut(pair, "="); found {
			form[key] = value
		}
	}
	return form
}

// chooseFilter 按 phone > qq > email 的固定优先级选出唯一生效的过滤条件
func chooseFilter(form map[string]string) (field, value string, ok bool) {
	for _, f := range filterPrecedence {
		if v, present := form[f]; present {
			return f, v, true
		}
	}
	return "", "", false
}
