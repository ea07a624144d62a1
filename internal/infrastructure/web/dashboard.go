package web

// dashboardHTML is the single-page dashboard. It renders snapshots pushed
// over the websocket and falls back to polling /api/snapshot when the
// socket is unavailable.
const dashboardHTML = `<!DOCTYPE html>
<html lang="en"><head>
<meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1">
<title>Whale Tracker</title>
<style>
:root{--bg:#08090d;--s:#0f1118;--s2:#161923;--bd:#252a3a;--tx:#c8cdd8;--tx2:#8891a5;--tx3:#5a6278;--ac:#3b82f6;--g:#10b981;--r:#ef4444;--o:#f59e0b;--go:#eab308}
*{margin:0;padding:0;box-sizing:border-box}
body{font-family:ui-monospace,'JetBrains Mono',monospace;background:var(--bg);color:var(--tx);min-height:100vh}
.app{max-width:1280px;margin:0 auto;padding:20px}
.hdr{display:flex;justify-content:space-between;align-items:center;padding:14px 0;border-bottom:1px solid var(--bd);margin-bottom:20px;flex-wrap:wrap;gap:10px}
.hdr h1{font-size:20px;font-weight:700}
.hdr h1 span{color:var(--ac)}
.badge{font-size:10px;padding:3px 10px;border-radius:4px;background:var(--s2);border:1px solid var(--bd);letter-spacing:1px;text-transform:uppercase;margin-left:10px}
.badge.displaying{color:var(--g);border-color:rgba(16,185,129,.3)}
.badge.fetching{color:var(--ac);border-color:rgba(59,130,246,.3)}
.badge.error{color:var(--r);border-color:rgba(239,68,68,.3)}
.badge.idle{color:var(--tx3)}
.badge.stale{color:var(--o);border-color:rgba(245,158,11,.3)}
.ctl{display:flex;gap:10px;align-items:center;flex-wrap:wrap;font-size:12px}
.ctl label{color:var(--tx2)}
.ctl input[type=number],.ctl select{width:90px;padding:6px 8px;background:var(--s2);border:1px solid var(--bd);border-radius:5px;color:var(--tx);font-family:inherit;font-size:12px;outline:none}
.ctl input[type=number]:focus,.ctl select:focus{border-color:var(--ac)}
.ctl button{font-family:inherit;font-size:12px;padding:7px 14px;border:none;border-radius:5px;cursor:pointer;font-weight:600;background:var(--ac);color:#fff}
.ctl button:hover{background:#2563eb}
.err{padding:10px 14px;border-radius:6px;margin-bottom:16px;border-left:3px solid var(--r);background:rgba(239,68,68,.08);color:var(--r);font-size:12px;display:none}
.cards{display:grid;grid-template-columns:repeat(auto-fit,minmax(150px,1fr));gap:12px;margin-bottom:20px}
.card{background:var(--s);border:1px solid var(--bd);border-radius:8px;padding:14px 16px}
.card .v{font-size:22px;font-weight:700}.card .v.b{color:var(--ac)}.card .v.g{color:var(--g)}.card .v.o{color:var(--o)}
.card .l{font-size:10px;color:var(--tx3);text-transform:uppercase;letter-spacing:.5px;margin-top:4px}
.pnl{background:var(--s);border:1px solid var(--bd);border-radius:10px;margin-bottom:18px;overflow:hidden}
.pnl-h{display:flex;justify-content:space-between;align-items:center;padding:12px 16px;border-bottom:1px solid var(--bd);background:var(--s2)}
.pnl-h h2{font-size:13px;font-weight:600}
.pnl-h .sub{font-size:11px;color:var(--tx3)}
.pnl-b{padding:14px 16px}
table{width:100%;border-collapse:collapse}
th{text-align:left;font-size:10px;color:var(--tx3);text-transform:uppercase;letter-spacing:.5px;padding:8px 10px;border-bottom:1px solid var(--bd)}
td{padding:9px 10px;border-bottom:1px solid rgba(37,42,58,.5);font-size:12px}
tr:hover td{background:rgba(59,130,246,.03)}
td.num{text-align:right}
th.num{text-align:right}
.ad{color:var(--go);font-size:11px}
.hash{color:var(--tx2);font-size:11px}
.hist{display:flex;align-items:flex-end;gap:3px;height:120px}
.hist .bar{flex:1;background:var(--ac);border-radius:2px 2px 0 0;min-height:2px;position:relative}
.hist .bar:hover{background:#2563eb}
.hist .bar .tip{display:none;position:absolute;bottom:100%;left:50%;transform:translateX(-50%);background:var(--s2);border:1px solid var(--bd);padding:4px 8px;border-radius:4px;font-size:10px;white-space:nowrap;margin-bottom:4px;z-index:10}
.hist .bar:hover .tip{display:block}
.gr2{display:grid;grid-template-columns:3fr 2fr;gap:18px}
@media(max-width:900px){.gr2{grid-template-columns:1fr}}
.emp{text-align:center;padding:30px;color:var(--tx3);font-size:12px}
.ftr{font-size:11px;color:var(--tx3);padding:10px 0;text-align:right}
.scy{max-height:460px;overflow-y:auto}
.scy::-webkit-scrollbar{width:6px}.scy::-webkit-scrollbar-thumb{background:var(--bd);border-radius:3px}
</style></head><body>
<div class="app">
  <div class="hdr">
    <div style="display:flex;align-items:center">
      <h1>&#128011; Whale <span>Tracker</span></h1>
      <span id="state" class="badge idle">IDLE</span>
      <span id="stale" class="badge stale" style="display:none">STALE</span>
    </div>
    <div class="ctl">
      <label>min ETH</label>
      <input id="minEth" type="number" min="0" step="10" value="50">
      <label>window</label>
      <select id="window">
        <option value="1">1h</option><option value="2">2h</option>
        <option value="6" selected>6h</option><option value="12">12h</option>
        <option value="24">24h</option>
      </select>
      <label><input id="auto" type="checkbox" checked> auto</label>
      <button id="refresh">Refresh</button>
    </div>
  </div>
  <div id="err" class="err"></div>
  <div class="cards">
    <div class="card"><div id="mCount" class="v b">-</div><div class="l">Transfers</div></div>
    <div class="card"><div id="mTotal" class="v g">-</div><div class="l">Total ETH</div></div>
    <div class="card"><div id="mAvg" class="v">-</div><div class="l">Avg ETH</div></div>
    <div class="card"><div id="mMax" class="v o">-</div><div class="l">Largest ETH</div></div>
    <div class="card"><div id="mSenders" class="v">-</div><div class="l">Unique Senders</div></div>
    <div class="card"><div id="mReceivers" class="v">-</div><div class="l">Unique Receivers</div></div>
  </div>
  <div class="pnl">
    <div class="pnl-h"><h2>Value Distribution</h2><span class="sub" id="histRange"></span></div>
    <div class="pnl-b"><div id="hist" class="hist"></div></div>
  </div>
  <div class="gr2">
    <div class="pnl">
      <div class="pnl-h"><h2>Recent Whale Transfers</h2><span class="sub" id="txCount"></span></div>
      <div class="pnl-b scy">
        <table><thead><tr>
          <th>Age</th><th>Tx</th><th>From</th><th>To</th>
          <th class="num">ETH</th><th class="num">Gas Fee</th>
        </tr></thead><tbody id="transfers"></tbody></table>
        <div id="txEmpty" class="emp">No transfers yet</div>
      </div>
    </div>
    <div class="pnl">
      <div class="pnl-h"><h2>Top Senders</h2><span class="sub" id="lbWindow"></span></div>
      <div class="pnl-b scy">
        <table><thead><tr>
          <th>#</th><th>Address</th><th class="num">Txs</th>
          <th class="num">Total</th><th class="num">Avg</th>
        </tr></thead><tbody id="leaders"></tbody></table>
        <div id="lbEmpty" class="emp">No repeat senders yet</div>
      </div>
    </div>
  </div>
  <div class="ftr" id="updated"></div>
</div>
<script>
(function(){
  var ws=null, pollTimer=null, applying=false;

  function $(id){return document.getElementById(id)}
  function ab(a){return a&&a.length>10?a.slice(0,6)+'...'+a.slice(-4):(a||'-')}
  function eth(v){
    if(v>=1000)return v.toLocaleString('en-US',{maximumFractionDigits:0});
    if(v>=100)return v.toLocaleString('en-US',{minimumFractionDigits:1,maximumFractionDigits:1});
    return v.toLocaleString('en-US',{minimumFractionDigits:2,maximumFractionDigits:2});
  }
  function ago(t){
    var d=Date.now()-new Date(t).getTime();
    if(d<60000)return Math.max(0,Math.floor(d/1000))+'s';
    if(d<3600000)return Math.floor(d/60000)+'m';
    return Math.floor(d/3600000)+'h';
  }
  function esc(s){var d=document.createElement('div');d.textContent=s;return d.innerHTML}

  function render(s){
    var st=$('state');
    st.textContent=s.state.toUpperCase();
    st.className='badge '+s.state;
    $('stale').style.display=s.stale?'':'none';

    var err=$('err');
    if(s.state==='error'&&s.last_error){
      err.textContent='['+s.last_error.kind+'] '+s.last_error.message;
      err.style.display='block';
    }else{
      err.style.display='none';
    }

    if(!applying){
      $('minEth').value=s.params.min_eth;
      $('window').value=String(s.params.window_hours);
      $('auto').checked=s.auto_refresh;
    }

    var m=s.summary||{};
    $('mCount').textContent=(m.transfer_count||0).toLocaleString('en-US');
    $('mTotal').textContent=eth(m.total_eth||0);
    $('mAvg').textContent=eth(m.average_eth||0);
    $('mMax').textContent=eth(m.largest_eth||0);
    $('mSenders').textContent=(m.unique_senders||0).toLocaleString('en-US');
    $('mReceivers').textContent=(m.unique_receivers||0).toLocaleString('en-US');

    var bins=s.histogram||[], hist=$('hist'), peak=1, i;
    for(i=0;i<bins.length;i++)if(bins[i].count>peak)peak=bins[i].count;
    var html='';
    for(i=0;i<bins.length;i++){
      var b=bins[i], h=Math.max(2,Math.round(b.count/peak*116));
      html+='<div class="bar" style="height:'+h+'px">'+
        '<span class="tip">'+eth(b.low)+' to '+eth(b.high)+' ETH: '+b.count+'</span></div>';
    }
    hist.innerHTML=html||'<div class="emp" style="width:100%">No data</div>';
    $('histRange').textContent=bins.length?eth(bins[0].low)+' to '+eth(bins[bins.length-1].high)+' ETH':'';

    var txs=s.transfers||[];
    html='';
    for(i=0;i<txs.length;i++){
      var t=txs[i];
      html+='<tr><td>'+ago(t.block_timestamp)+'</td>'+
        '<td class="hash">'+esc(ab(t.transaction_hash))+'</td>'+
        '<td class="ad">'+esc(ab(t.from_address))+'</td>'+
        '<td class="ad">'+esc(ab(t.to_address))+'</td>'+
        '<td class="num">'+eth(t.eth_amount)+'</td>'+
        '<td class="num">'+t.gas_fee_eth.toFixed(4)+'</td></tr>';
    }
    $('transfers').innerHTML=html;
    $('txEmpty').style.display=txs.length?'none':'';
    $('txCount').textContent=txs.length?txs.length+' shown':'';

    var lb=s.leaderboard||[];
    html='';
    for(i=0;i<lb.length;i++){
      var a=lb[i];
      html+='<tr><td>'+(i+1)+'</td>'+
        '<td class="ad">'+esc(ab(a.from_address))+'</td>'+
        '<td class="num">'+a.transfer_count+'</td>'+
        '<td class="num">'+eth(a.total_eth_sent)+'</td>'+
        '<td class="num">'+eth(a.avg_eth_per_transfer)+'</td></tr>';
    }
    $('leaders').innerHTML=html;
    $('lbEmpty').style.display=lb.length?'none':'';
    $('lbWindow').textContent='last '+(s.params.window_hours*2>720?720:s.params.window_hours*2)+'h';

    $('updated').textContent=s.updated_at&&s.updated_at.indexOf('0001-')!==0?
      'updated '+new Date(s.updated_at).toLocaleTimeString():'';
  }

  function poll(){
    fetch('/api/snapshot').then(function(r){return r.json()}).then(render).catch(function(){});
  }
  function startPolling(){
    if(pollTimer)return;
    poll();
    pollTimer=setInterval(poll,5000);
  }
  function stopPolling(){
    if(pollTimer){clearInterval(pollTimer);pollTimer=null}
  }
  function connect(){
    var proto=location.protocol==='https:'?'wss://':'ws://';
    ws=new WebSocket(proto+location.host+'/ws');
    ws.onopen=stopPolling;
    ws.onmessage=function(ev){render(JSON.parse(ev.data))};
    ws.onclose=function(){ws=null;startPolling();setTimeout(connect,10000)};
    ws.onerror=function(){if(ws)ws.close()};
  }

  function postParams(){
    applying=true;
    var body={min_eth:parseFloat($('minEth').value),window_hours:parseInt($('window').value,10)};
    fetch('/api/params',{method:'POST',headers:{'Content-Type':'application/json'},body:JSON.stringify(body)})
      .then(function(r){return r.json()})
      .then(function(res){
        if(res.kind){
          var err=$('err');
          err.textContent='['+res.kind+'] '+res.message;
          err.style.display='block';
        }
      })
      .catch(function(){})
      .then(function(){applying=false});
  }

  $('minEth').addEventListener('change',postParams);
  $('window').addEventListener('change',postParams);
  $('auto').addEventListener('change',function(){
    fetch('/api/autorefresh',{method:'POST',headers:{'Content-Type':'application/json'},
      body:JSON.stringify({enabled:$('auto').checked})}).catch(function(){});
  });
  $('refresh').addEventListener('click',function(){
    fetch('/api/refresh',{method:'POST'}).catch(function(){});
  });

  poll();
  connect();
})();
</script>
</body></html>
`
