package handlers

import (
	"fmt"
	"net/http"
)

// =============================================================================
// 📈 /stats 处理
// =============================================================================

// statsTemplate 固定的统计 HTML 片段，四个整数按
// {总数, 去重手机号, 去重 QQ, 去重邮箱} 的顺序代入。
const statsTemplate = `
        <h2>Database Statistics</h2>
        <ul>
            <li>Total Records: %d</li>
            <li>Unique Phones: %d</li>
            <li>Unique QQs: %d</li>
            <li>Unique Emails: %d</li>
        </ul>
        `

// handleStats 返回四项聚合计数。单项查询失败降级为 0，不向客户端
// 暴露独立的错误状态。
func (rt *Router) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total := rt.dir.CountAll(ctx)
	phones := rt.dir.CountDistinct(ctx, "phone")
	qqs := rt.dir.CountDistinct(ctx, "qq")
	emails := rt.dir.CountDistinct(ctx, "email")

	WriteHTML(w, http.StatusOK, fmt.Sprintf(statsTemplate, total, phones, qqs, emails))
}
